// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the Dispatcher: the per-channel fan-out
// point that hands a freshly inserted message to every registered
// consumer callback.
//
// Cyber RT instantiates one Dispatcher per C++ message type (a
// template specialization per type). That collapses here into one
// generic Dispatcher[T] keyed by role.ChannelID, with a process-wide
// Registry keyed by (reflect.Type, role.ChannelID) standing in for the
// per-type singleton.
package dispatch

import (
	"reflect"
	"sync"

	"github.com/cyberbus/cyberbus/role"
)

// Callback is invoked with every message dispatched on a channel.
type Callback[T any] func(seq uint64, msg T)

type listener[T any] struct {
	id uint64
	cb Callback[T]
}

// Dispatcher fans messages out to every registered callback for one
// channel id and one concrete message type T. Registration and
// dispatch are both safe for concurrent use; dispatch takes the read
// lock so concurrent Dispatch calls never block each other, matching
// spec.md's "read-biased lock; dispatch frequent, registration rare".
type Dispatcher[T any] struct {
	mu        sync.RWMutex
	channelID role.ChannelID
	listeners []listener[T]
	nextID    uint64
}

// NewDispatcher creates a Dispatcher for one channel id.
func NewDispatcher[T any](channelID role.ChannelID) *Dispatcher[T] {
	return &Dispatcher[T]{channelID: channelID}
}

// ChannelID returns the channel this dispatcher serves.
func (d *Dispatcher[T]) ChannelID() role.ChannelID {
	return d.channelID
}

// Register adds cb to the fan-out list and returns a token usable with
// Unregister. Registration is not deduplicated: every call returns a
// distinct token, and callers that register the same callback twice get
// two independent registrations.
func (d *Dispatcher[T]) Register(cb Callback[T]) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.listeners = append(d.listeners, listener[T]{id: d.nextID, cb: cb})
	return d.nextID
}

// Unregister removes a previously registered callback. Unknown tokens
// are a no-op, making repeated Unregister calls with the same token
// safe.
func (d *Dispatcher[T]) Unregister(token uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, l := range d.listeners {
		if l.id == token {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// Dispatch calls every registered callback with the given sequence
// number and message, in registration order.
func (d *Dispatcher[T]) Dispatch(seq uint64, msg T) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		l.cb(seq, msg)
	}
}

// ListenerCount reports how many callbacks are currently registered,
// mainly for diagnostics and tests.
func (d *Dispatcher[T]) ListenerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// key identifies one Dispatcher[T] instance within a Registry: the
// concrete message type plus the channel id.
type key struct {
	msgType   reflect.Type
	channelID role.ChannelID
}

// Registry is the process-wide map of (message type, channel id) to
// Dispatcher, replacing Cyber RT's per-type Dispatcher singleton with a
// single explicit map any number of Facade instances can hold.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[key]any
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[key]any)}
}

// Get returns the Dispatcher[T] for the given channel id, creating it
// on first use. The zero value of T is only used to capture T's
// reflect.Type; it is never itself dispatched.
func Get[T any](r *Registry, channelID role.ChannelID) *Dispatcher[T] {
	var zero T
	k := key{msgType: reflect.TypeOf(zero), channelID: channelID}

	r.mu.RLock()
	if d, ok := r.dispatchers[k]; ok {
		r.mu.RUnlock()
		return d.(*Dispatcher[T])
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.dispatchers[k]; ok {
		return d.(*Dispatcher[T])
	}
	d := NewDispatcher[T](channelID)
	r.dispatchers[k] = d
	return d
}
