// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify implements the wakeup side of the transport: a
// Notifier tells parked consumers that a channel has new data without
// shipping the data itself, and a Registry fans a single insert event
// out to every consumer currently listening on that channel.
//
// Grounded on original_source/cyber/transport/shm/notifier_base.h's
// NotifierBase interface (Shutdown/Notify/Listen), with ConditionNotifier
// and MulticastNotifier as the two concrete variants it names.
package notify

import (
	"context"

	"github.com/cyberbus/cyberbus/role"
)

// ReadableInfo describes one "this channel has new data" event. It is
// the payload carried by Notify/Listen, and the wire payload written
// into the shared-memory ring by Condition and onto the wire by
// Multicast.
type ReadableInfo struct {
	ChannelID role.ChannelID
	Sequence  uint64
}

// Notifier is the wakeup-signal abstraction shared by every transport.
// A Notifier never carries the message payload itself, only the fact
// that one is available and at what sequence.
type Notifier interface {
	// Notify signals that info is available. Implementations may
	// coalesce concurrent notifications for the same channel.
	Notify(info ReadableInfo) error

	// Listen blocks until a ReadableInfo arrives or ctx is done.
	Listen(ctx context.Context) (ReadableInfo, error)

	// Shutdown releases resources and causes blocked and future Listen
	// calls to return an error. Idempotent.
	Shutdown()
}
