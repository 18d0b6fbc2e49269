// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"testing"
	"time"

	"github.com/cyberbus/cyberbus/envelope"
	"github.com/cyberbus/cyberbus/role"
)

func TestMarshalUnmarshalEnvelopeRoundtrip(t *testing.T) {
	channelID := role.HashChannelName("/scan")
	original := envelope.New(channelID, sampleMessage{Action: "scan", Count: 3}).WithSequence(99)

	data, err := MarshalEnvelope(original)
	if err != nil {
		t.Fatalf("MarshalEnvelope: %v", err)
	}

	decoded, err := UnmarshalEnvelope[sampleMessage](data)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope: %v", err)
	}

	if decoded.ChannelID != original.ChannelID {
		t.Errorf("ChannelID = %d, want %d", decoded.ChannelID, original.ChannelID)
	}
	if decoded.Payload != original.Payload {
		t.Errorf("Payload = %+v, want %+v", decoded.Payload, original.Payload)
	}
	if decoded.Sequence != 0 {
		t.Errorf("Sequence = %d, want 0 (sequence never travels on the wire)", decoded.Sequence)
	}
	if !decoded.Published.Equal(original.Published) {
		t.Errorf("Published = %v, want %v", decoded.Published, original.Published)
	}
}

func TestUnmarshalEnvelopePreservesPublishedAcrossUnixNano(t *testing.T) {
	channelID := role.HashChannelName("/t")
	// time.Now() carries monotonic + wall-clock readings; UnixNano
	// strips the monotonic component, so round-tripping through the
	// wire format should still produce an equal wall-clock time.
	env := envelope.New(channelID, 7)
	data, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("MarshalEnvelope: %v", err)
	}
	decoded, err := UnmarshalEnvelope[int](data)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope: %v", err)
	}
	if decoded.Published.UnixNano() != env.Published.UnixNano() {
		t.Errorf("Published.UnixNano() = %d, want %d", decoded.Published.UnixNano(), env.Published.UnixNano())
	}
}

func TestUnmarshalEnvelopeInvalidCBOR(t *testing.T) {
	if _, err := UnmarshalEnvelope[int]([]byte{0xFF, 0xFE, 0xFD}); err == nil {
		t.Error("UnmarshalEnvelope should reject invalid CBOR")
	}
}

func TestMarshalEnvelopeDeterministic(t *testing.T) {
	channelID := role.HashChannelName("/t")
	env := envelope.New(channelID, sampleMessage{Action: "x", Count: 1}).WithSequence(1)
	// Pin Published so both encodes see the same logical value.
	env.Published = time.Unix(0, env.Published.UnixNano())

	first, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("first MarshalEnvelope: %v", err)
	}
	second, err := MarshalEnvelope(env)
	if err != nil {
		t.Fatalf("second MarshalEnvelope: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}
