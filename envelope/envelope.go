// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope defines the generic wrapper every message carries as
// it moves through a buffer, a dispatcher, and a transport.
package envelope

import (
	"time"

	"github.com/cyberbus/cyberbus/role"
)

// Envelope wraps a published payload with the metadata needed to route
// and fuse it: a sequence number, the channel it was published on, and
// the wall-clock time New built it.
type Envelope[T any] struct {
	Sequence  uint64
	ChannelID role.ChannelID
	Published time.Time
	Payload   T
}

// New builds an Envelope around a payload. Sequence is left zero:
// buffer.Channel.Insert returns the sequence it assigns rather than
// writing it here, and WithSequence stamps a copy when one is needed.
func New[T any](channelID role.ChannelID, payload T) Envelope[T] {
	return Envelope[T]{
		ChannelID: channelID,
		Published: time.Now(),
		Payload:   payload,
	}
}

// WithSequence returns a copy of the envelope stamped with seq.
func (e Envelope[T]) WithSequence(seq uint64) Envelope[T] {
	e.Sequence = seq
	return e
}
