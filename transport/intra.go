// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/cyberbus/cyberbus/buffer"

// IntraTransmitter publishes directly into a process-local
// buffer.Channel[T] — no encoding, no wire hop. The Channel's OnInsert
// hook (wired by the Facade) is what actually fans the message out to
// the local Dispatcher and Data Notifier Registry; Transmit itself
// only assigns the sequence number via Insert.
type IntraTransmitter[T any] struct {
	channel *buffer.Channel[T]
}

// NewIntraTransmitter wraps an already-constructed Channel. The Facade
// is responsible for wiring that Channel's OnInsert hook before handing
// out transmitters against it.
func NewIntraTransmitter[T any](channel *buffer.Channel[T]) *IntraTransmitter[T] {
	return &IntraTransmitter[T]{channel: channel}
}

// Transmit inserts msg into the backing Channel. Insertion into a
// fixed-capacity ring never fails, so this never returns an error.
func (t *IntraTransmitter[T]) Transmit(msg T) error {
	t.channel.Insert(msg)
	return nil
}

// Close is a no-op: the Channel and its Cache are owned by the Facade,
// not by any one transmitter.
func (t *IntraTransmitter[T]) Close() error { return nil }
