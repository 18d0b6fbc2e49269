// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/envelope"
	"github.com/cyberbus/cyberbus/lib/codec"
	"github.com/cyberbus/cyberbus/role"
	"github.com/cyberbus/cyberbus/rtps"
)

// RtpsTransmitter encodes with lib/codec and hands the payload to an
// rtps.Publisher, for cross-host delivery.
type RtpsTransmitter[T any] struct {
	channelID role.ChannelID
	publisher rtps.Publisher
	dropCount atomic.Int64
}

// NewRtpsTransmitter obtains a Publisher for channelID from
// participant. Construction failure here is a real error (spec.md §7:
// "failure to create the participant" is surfaced, unlike a per-message
// drop).
func NewRtpsTransmitter[T any](participant rtps.Participant, channelID role.ChannelID) (*RtpsTransmitter[T], error) {
	publisher, err := participant.Publisher(channelID)
	if err != nil {
		return nil, fmt.Errorf("transport: creating rtps publisher for channel %d: %w", channelID, err)
	}
	return &RtpsTransmitter[T]{channelID: channelID, publisher: publisher}, nil
}

// Transmit wraps msg in an envelope carrying its publish time, encodes
// it, and publishes it. A publish failure counts as a transport drop,
// not an error returned to the caller.
func (t *RtpsTransmitter[T]) Transmit(msg T) error {
	payload, err := codec.MarshalEnvelope(envelope.New(t.channelID, msg))
	if err != nil {
		return fmt.Errorf("transport: encoding message for channel %d: %w", t.channelID, err)
	}
	if err := t.publisher.Publish(payload); err != nil {
		t.dropCount.Add(1)
	}
	return nil
}

// DropCount reports rtps publish failures for spec.md §7's failure
// counters.
func (t *RtpsTransmitter[T]) DropCount() int64 { return t.dropCount.Load() }

func (t *RtpsTransmitter[T]) Close() error { return t.publisher.Close() }

// RtpsReceiver subscribes to channelID on an rtps.Participant, decodes
// every arriving payload with lib/codec, and inserts it into a local
// buffer.Channel[T].
type RtpsReceiver[T any] struct {
	subscriber    rtps.Subscriber
	lastLatencyNs atomic.Int64
}

// NewRtpsReceiver registers the decode-and-insert callback with
// participant. A malformed payload (fails to decode) is dropped
// silently, matching every other fast path in spec.md §7.
func NewRtpsReceiver[T any](participant rtps.Participant, channelID role.ChannelID, channel *buffer.Channel[T]) (*RtpsReceiver[T], error) {
	r := &RtpsReceiver[T]{}
	subscriber, err := participant.Subscriber(channelID, func(payload []byte) {
		env, err := codec.UnmarshalEnvelope[T](payload)
		if err != nil {
			return
		}
		r.lastLatencyNs.Store(int64(time.Since(env.Published)))
		channel.Insert(env.Payload)
	})
	if err != nil {
		return nil, fmt.Errorf("transport: subscribing to channel %d: %w", channelID, err)
	}
	r.subscriber = subscriber
	return r, nil
}

func (r *RtpsReceiver[T]) Close() error { return r.subscriber.Close() }

// LastLatency reports the time between the sender's Transmit call and
// this receiver's most recent decode, computed from the publish
// timestamp carried in the wire envelope. Zero until the first
// delivery.
func (r *RtpsReceiver[T]) LastLatency() time.Duration {
	return time.Duration(r.lastLatencyNs.Load())
}
