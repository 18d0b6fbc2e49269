// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "github.com/cyberbus/cyberbus/dispatch"

// Transmitter is the producer-side endpoint (C5) for one channel and
// message type. Transmit is non-blocking except for the shm variant,
// which may block briefly while a segment slot is claimed. A
// transport-level drop (shm segment full, rtps publish failure) is
// recorded in a failure counter and never surfaced as an error here —
// spec.md §7's "transport drop" fast path.
type Transmitter[T any] interface {
	Transmit(msg T) error
	Close() error
}

// Receiver is the consumer-side registration surface (C5). It matches
// *dispatch.Dispatcher[T]'s method set exactly, so the Intra family
// hands back the dispatcher itself rather than wrapping it — see
// intra.go.
type Receiver[T any] interface {
	Register(cb dispatch.Callback[T]) uint64
	Unregister(token uint64)
}
