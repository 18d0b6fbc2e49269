// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package buffer

import "github.com/cyberbus/cyberbus/role"

// Channel pairs a role.ChannelID with the Cache backing it and an
// optional hook invoked after every successful insert. The hook is how
// the fusion engine and the notifier registry learn about new data
// without polling the cache.
type Channel[T any] struct {
	id    role.ChannelID
	cache *Cache[T]

	// OnInsert, if set, is called synchronously after every Insert with
	// the assigned sequence number and the inserted value. It must not
	// block for long; callers that need to do real work should hand off
	// to a goroutine or buffered channel of their own.
	OnInsert func(seq uint64, msg T)
}

// NewChannel creates a Channel backed by a Cache of the given capacity.
// Fails if capacity is less than 1 (spec.md §7).
func NewChannel[T any](id role.ChannelID, capacity int) (*Channel[T], error) {
	cache, err := NewCache[T](capacity)
	if err != nil {
		return nil, err
	}
	return &Channel[T]{
		id:    id,
		cache: cache,
	}, nil
}

// ID returns the channel identifier this buffer is attached to.
func (c *Channel[T]) ID() role.ChannelID {
	return c.id
}

// Cache returns the underlying Cache for direct Fetch/FetchAtOrAfter use.
func (c *Channel[T]) Cache() *Cache[T] {
	return c.cache
}

// Insert stores msg in the cache and, if set, invokes OnInsert with the
// sequence number assigned to it.
func (c *Channel[T]) Insert(msg T) uint64 {
	seq := c.cache.Insert(msg)
	if c.OnInsert != nil {
		c.OnInsert(seq, msg)
	}
	return seq
}
