// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"testing"

	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/role"
	"github.com/cyberbus/cyberbus/rtps"
	"github.com/cyberbus/cyberbus/topology"
)

// fakeParticipant is a minimal rtps.Participant stand-in, mirroring the
// one topology.Manager's own tests use, so HybridTransmitter's locality
// selection can be driven without a real WebRTC data channel.
type fakeParticipant struct {
	onDiscovery func(rtps.DiscoveryEvent)
}

func (f *fakeParticipant) Name() string { return "fake" }
func (f *fakeParticipant) Publisher(role.ChannelID) (rtps.Publisher, error) { return nil, nil }
func (f *fakeParticipant) Subscriber(role.ChannelID, func([]byte)) (rtps.Subscriber, error) {
	return nil, nil
}
func (f *fakeParticipant) OnDiscovery(fn func(rtps.DiscoveryEvent)) { f.onDiscovery = fn }
func (f *fakeParticipant) Shutdown() error                          { return nil }

func TestClassifyLocality(t *testing.T) {
	cases := []struct {
		name       string
		subHost    string
		subPID     int
		wantResult locality
	}{
		{"same process", "host1", 100, localityIntra},
		{"same host different process", "host1", 200, localityShm},
		{"different host", "host2", 100, localityRtps},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyLocality("host1", 100, role.Attributes{HostName: c.subHost, ProcessID: c.subPID})
			if got != c.wantResult {
				t.Fatalf("classifyLocality() = %v, want %v", got, c.wantResult)
			}
		})
	}
}

// TestHybridTransmitterSelectsTransportsByLocality exercises spec.md §8
// law L3 with one local and one remote subscriber. The shm and rtps
// sub-transmitters are nil here, so only the intra leg is observed: the
// local subscriber must select intra.
func TestHybridTransmitterSelectsTransportsByLocality(t *testing.T) {
	fp := &fakeParticipant{}
	topo := topology.New()
	if err := topo.Init("host1", 100, fp); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer topo.Shutdown()

	channelID := role.HashChannelName("/fusion/lidar")

	// A local subscriber (same process) and a remote subscriber
	// (different host) join the channel.
	topo.JoinChannel(role.Attributes{HostName: "host1", ProcessID: 100, ChannelID: channelID, Identity: role.NewIdentity()})
	topo.JoinChannel(role.Attributes{HostName: "host2", ProcessID: 999, ChannelID: channelID, Identity: role.NewIdentity()})

	intraCh := make(chan int, 4)
	intraChannel, err := buffer.NewChannel[int](channelID, 8)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	intraChannel.OnInsert = func(seq uint64, msg int) { intraCh <- msg }
	intraTx := NewIntraTransmitter[int](intraChannel)

	hybrid := NewHybridTransmitter[int](channelID, "host1", 100, intraTx, nil, nil, topo)
	defer hybrid.Close()

	if err := hybrid.Transmit(42); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	select {
	case got := <-intraCh:
		if got != 42 {
			t.Fatalf("intra delivered %d, want 42", got)
		}
	default:
		t.Fatal("expected intra delivery, got none (local subscriber should select intra)")
	}
}

func TestHybridTransmitterNoSubscribersSelectsNothing(t *testing.T) {
	fp := &fakeParticipant{}
	topo := topology.New()
	if err := topo.Init("host1", 100, fp); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer topo.Shutdown()

	channelID := role.HashChannelName("/fusion/empty")
	intraCh := make(chan int, 4)
	intraChannel, err := buffer.NewChannel[int](channelID, 8)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}
	intraChannel.OnInsert = func(seq uint64, msg int) { intraCh <- msg }
	intraTx := NewIntraTransmitter[int](intraChannel)

	hybrid := NewHybridTransmitter[int](channelID, "host1", 100, intraTx, nil, nil, topo)
	defer hybrid.Close()

	if err := hybrid.Transmit(1); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	select {
	case <-intraCh:
		t.Fatal("expected no delivery with zero subscribers")
	default:
	}
}
