// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"time"

	"github.com/cyberbus/cyberbus/envelope"
	"github.com/cyberbus/cyberbus/role"
)

// wireEnvelope is the on-the-wire shape of an envelope.Envelope[T] as
// carried by the Shm and Rtps transports: the channel id and publish
// time travel with the payload, so a receiver on another host or
// process can tell how stale an arrival was by the time it decoded it
// rather than only knowing when its own Cache Buffer stamped it.
//
// Fields are keyasint-tagged so Core Deterministic Encoding produces
// integer map keys instead of the field-name strings an untagged
// struct would carry — every byte here crosses a shm ring or a data
// channel, so the smaller encoding is worth the lost readability in a
// raw capture. Sequence does not travel: it is a purely local property
// the receiving Cache Buffer assigns on insertion, and the sender's own
// sequence number has no meaning once it crosses a process boundary.
type wireEnvelope[T any] struct {
	ChannelID role.ChannelID `cbor:"0,keyasint"`
	Published int64          `cbor:"1,keyasint"` // UnixNano
	Payload   T              `cbor:"2,keyasint"`
}

// MarshalEnvelope encodes env using the compact keyasint wire framing
// shared by every Shm and Rtps transmitter.
func MarshalEnvelope[T any](env envelope.Envelope[T]) ([]byte, error) {
	return Marshal(wireEnvelope[T]{
		ChannelID: env.ChannelID,
		Published: env.Published.UnixNano(),
		Payload:   env.Payload,
	})
}

// UnmarshalEnvelope decodes data produced by MarshalEnvelope. Sequence
// on the returned Envelope is left zero; the receiving
// buffer.Channel.Insert assigns its own sequence to the payload and
// returns it.
func UnmarshalEnvelope[T any](data []byte) (envelope.Envelope[T], error) {
	var wire wireEnvelope[T]
	if err := Unmarshal(data, &wire); err != nil {
		return envelope.Envelope[T]{}, fmt.Errorf("codec: decoding wire envelope: %w", err)
	}
	return envelope.Envelope[T]{
		ChannelID: wire.ChannelID,
		Published: time.Unix(0, wire.Published),
		Payload:   wire.Payload,
	}, nil
}
