// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/role"
)

func newTestChannel[T any](id role.ChannelID, capacity int) *buffer.Channel[T] {
	ch, err := buffer.NewChannel[T](id, capacity)
	if err != nil {
		panic(err)
	}
	return ch
}
