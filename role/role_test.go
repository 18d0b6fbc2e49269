// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package role

import "testing"

func TestHashChannelNameDeterministic(t *testing.T) {
	a := HashChannelName("/perception/obstacles")
	b := HashChannelName("/perception/obstacles")
	if a != b {
		t.Fatalf("HashChannelName not deterministic: %v != %v", a, b)
	}
}

func TestHashChannelNameDistinct(t *testing.T) {
	a := HashChannelName("/perception/obstacles")
	b := HashChannelName("/perception/lanes")
	if a == b {
		t.Fatalf("distinct channel names hashed to the same id: %v", a)
	}
}

func TestNewIdentityUnique(t *testing.T) {
	a := NewIdentity()
	b := NewIdentity()
	if a == b {
		t.Fatalf("two calls to NewIdentity produced the same value")
	}
}

func TestIdentityString(t *testing.T) {
	id := NewIdentity()
	s := id.String()
	if len(s) != 36 {
		t.Fatalf("expected a canonical 36-byte UUID string, got %q", s)
	}
}

func TestNewAttributesDerivesChannelID(t *testing.T) {
	attrs := NewAttributes("host1", 123, "node1", "/control/trajectory", "apollo.control.Trajectory", DefaultQoS)
	if attrs.ChannelID != HashChannelName("/control/trajectory") {
		t.Fatalf("ChannelID not derived from ChannelName")
	}
	if attrs.HostName != "host1" || attrs.ProcessID != 123 || attrs.NodeName != "node1" {
		t.Fatalf("unexpected attributes: %+v", attrs)
	}
}

func TestReliabilityString(t *testing.T) {
	if BestEffort.String() != "best_effort" {
		t.Fatalf("unexpected BestEffort string %q", BestEffort.String())
	}
	if Reliable.String() != "reliable" {
		t.Fatalf("unexpected Reliable string %q", Reliable.String())
	}
}
