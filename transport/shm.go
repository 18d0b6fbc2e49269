// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/envelope"
	"github.com/cyberbus/cyberbus/lib/codec"
	"github.com/cyberbus/cyberbus/notify"
	"github.com/cyberbus/cyberbus/role"
)

// defaultShmListenTimeout bounds each Condition.Listen call so the
// receiver loop periodically re-checks its context even if no wakeup
// datagram ever arrives (e.g. the writer side crashed mid-segment).
const defaultShmListenTimeout = 5 * time.Second

// ShmTransmitter encodes with lib/codec and relays the payload through
// an mmap-backed shmSegment plus a notify.Notifier wakeup. The
// segment's slot bookkeeping lives in this process's memory (see
// shmSegment), so delivery reaches receivers that share the same
// segment value; a separate process cannot locate blocks in it.
type ShmTransmitter[T any] struct {
	channelID role.ChannelID
	segment   *shmSegment
	notifier  notify.Notifier
	dropCount atomic.Int64
}

// NewShmTransmitter builds a transmitter over an already-constructed
// segment and notifier, both owned and shared by the Facade across
// every channel on this host.
func NewShmTransmitter[T any](channelID role.ChannelID, segment *shmSegment, notifier notify.Notifier) *ShmTransmitter[T] {
	return &ShmTransmitter[T]{channelID: channelID, segment: segment, notifier: notifier}
}

// Transmit wraps msg in an envelope carrying its publish time, encodes
// it, appends it to the shm segment, and signals the notifier. A
// segment-full drop (payload too large for a slot) or a notify failure
// both count as a transport drop rather than an error returned to the
// caller — spec.md §7.
func (t *ShmTransmitter[T]) Transmit(msg T) error {
	payload, err := codec.MarshalEnvelope(envelope.New(t.channelID, msg))
	if err != nil {
		return fmt.Errorf("transport: encoding message for channel %d: %w", t.channelID, err)
	}

	desc, ok := t.segment.Append(t.channelID, payload)
	if !ok {
		t.dropCount.Add(1)
		return nil
	}

	if err := t.notifier.Notify(notify.ReadableInfo{ChannelID: t.channelID, Sequence: desc.Generation}); err != nil {
		t.dropCount.Add(1)
	}
	return nil
}

// DropCount reports transport-level drops for spec.md §7's failure
// counters.
func (t *ShmTransmitter[T]) DropCount() int64 { return t.dropCount.Load() }

func (t *ShmTransmitter[T]) Close() error { return nil }

// ShmReceiver listens on a notify.Notifier and, on each wakeup, reads
// the corresponding block from the shm segment, decodes it, and
// inserts it into a local buffer.Channel[T] — whose OnInsert hook (set
// by the Facade) drives the local Dispatcher and Data Notifier
// Registry exactly like any other arrival.
type ShmReceiver[T any] struct {
	channelID     role.ChannelID
	segment       *shmSegment
	notifier      notify.Notifier
	channel       *buffer.Channel[T]
	listenTimeout time.Duration
	lastLatencyNs atomic.Int64
}

// NewShmReceiver builds a receiver over the same segment and notifier
// the corresponding ShmTransmitter uses, decoding arrivals into
// channel.
func NewShmReceiver[T any](channelID role.ChannelID, segment *shmSegment, notifier notify.Notifier, channel *buffer.Channel[T]) *ShmReceiver[T] {
	return &ShmReceiver[T]{
		channelID:     channelID,
		segment:       segment,
		notifier:      notifier,
		channel:       channel,
		listenTimeout: defaultShmListenTimeout,
	}
}

// Start runs the listener loop in a new goroutine until ctx is done or
// the notifier shuts down.
func (r *ShmReceiver[T]) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *ShmReceiver[T]) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		listenCtx, cancel := context.WithTimeout(ctx, r.listenTimeout)

		info, err := r.notifier.Listen(listenCtx)
		cancel()

		if err != nil {
			if errors.Is(err, notify.ErrShutdown) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			// Listen timed out this round; loop and re-check ctx.
			continue
		}

		if info.ChannelID != r.channelID {
			continue
		}
		r.deliver(info)
	}
}

// deliver reads the block the notification points at, discarding it
// silently if the segment has already overwritten that slot with
// something newer — the receiver simply waits for the next wakeup
// rather than surfacing the miss, matching spec.md §7's "buffer miss"
// fast path.
func (r *ShmReceiver[T]) deliver(info notify.ReadableInfo) {
	// Append advances slot and generation together, so generation g
	// was written to slot (g-1) mod slotCount.
	if info.Sequence == 0 {
		return
	}
	r.segment.mu.Lock()
	desc := r.segment.slotOf[(info.Sequence-1)%uint64(r.segment.slotCount)]
	r.segment.mu.Unlock()
	if desc.Generation != info.Sequence || desc.ChannelID != r.channelID {
		return
	}
	payload, ok := r.segment.Read(desc)
	if !ok {
		return
	}
	env, err := codec.UnmarshalEnvelope[T](payload)
	if err != nil {
		return
	}
	r.lastLatencyNs.Store(int64(time.Since(env.Published)))
	r.channel.Insert(env.Payload)
}

// LastLatency reports the time between the sender's Transmit call and
// this receiver's most recent decode, computed from the publish
// timestamp carried in the wire envelope. Zero until the first
// delivery.
func (r *ShmReceiver[T]) LastLatency() time.Duration {
	return time.Duration(r.lastLatencyNs.Load())
}
