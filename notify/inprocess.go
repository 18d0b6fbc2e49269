// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is returned by Notify and Listen once Shutdown has been
// called.
var ErrShutdown = errors.New("notify: notifier shut down")

// InProcess is the intra-process Notifier: waking a consumer means
// sending on a buffered channel that the consumer's Listen call is
// blocked reading from. There is no external scheduler to hook into, so
// this is the direct Go rendering of cyber's coroutine wakeup for the
// case where producer and consumer share a process.
type InProcess struct {
	mu       sync.Mutex
	pending  chan ReadableInfo
	shutdown bool
}

// NewInProcess creates an InProcess notifier with the given pending
// queue depth. A depth of at least a few dozen is recommended so a
// burst of inserts does not push older pending notifications out of the
// queue (Notify never blocks; it drops the oldest instead).
func NewInProcess(queueDepth int) *InProcess {
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &InProcess{
		pending: make(chan ReadableInfo, queueDepth),
	}
}

// Notify enqueues info for delivery to the next Listen call. If the
// queue is full, the oldest pending notification is dropped to make
// room — notifications are a hint, not a guaranteed-delivery channel.
func (n *InProcess) Notify(info ReadableInfo) error {
	n.mu.Lock()
	if n.shutdown {
		n.mu.Unlock()
		return ErrShutdown
	}
	n.mu.Unlock()

	select {
	case n.pending <- info:
		return nil
	default:
		select {
		case <-n.pending:
		default:
		}
		select {
		case n.pending <- info:
		default:
		}
		return nil
	}
}

// Listen blocks until a notification arrives, ctx is canceled, or
// Shutdown is called.
func (n *InProcess) Listen(ctx context.Context) (ReadableInfo, error) {
	n.mu.Lock()
	closed := n.shutdown
	n.mu.Unlock()
	if closed {
		return ReadableInfo{}, ErrShutdown
	}
	select {
	case info, ok := <-n.pending:
		if !ok {
			return ReadableInfo{}, ErrShutdown
		}
		return info, nil
	case <-ctx.Done():
		return ReadableInfo{}, ctx.Err()
	}
}

// Shutdown closes the notifier. Idempotent.
func (n *InProcess) Shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.shutdown {
		return
	}
	n.shutdown = true
	close(n.pending)
}
