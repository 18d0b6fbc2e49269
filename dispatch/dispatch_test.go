// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"sync"
	"testing"

	"github.com/cyberbus/cyberbus/role"
)

type testMsg struct {
	Value int
}

func TestDispatcherDispatchCallsAllListeners(t *testing.T) {
	d := NewDispatcher[testMsg](role.ChannelID(1))

	var mu sync.Mutex
	var got []int
	d.Register(func(seq uint64, msg testMsg) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.Value)
	})
	d.Register(func(seq uint64, msg testMsg) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg.Value*10)
	})

	d.Dispatch(1, testMsg{Value: 5})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 5 || got[1] != 50 {
		t.Fatalf("got %v, want [5 50]", got)
	}
}

func TestDispatcherUnregisterStopsCallback(t *testing.T) {
	d := NewDispatcher[testMsg](role.ChannelID(1))

	calls := 0
	token := d.Register(func(seq uint64, msg testMsg) { calls++ })
	d.Dispatch(1, testMsg{})
	d.Unregister(token)
	d.Dispatch(2, testMsg{})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDispatcherUnregisterUnknownTokenIsNoop(t *testing.T) {
	d := NewDispatcher[testMsg](role.ChannelID(1))
	d.Unregister(999)
	if d.ListenerCount() != 0 {
		t.Fatalf("ListenerCount() = %d, want 0", d.ListenerCount())
	}
}

func TestRegistryGetReturnsSameDispatcherForSameChannel(t *testing.T) {
	r := NewRegistry()
	d1 := Get[testMsg](r, role.ChannelID(1))
	d2 := Get[testMsg](r, role.ChannelID(1))
	if d1 != d2 {
		t.Fatalf("Get returned different dispatchers for the same channel id")
	}
}

func TestRegistryGetDistinguishesChannels(t *testing.T) {
	r := NewRegistry()
	d1 := Get[testMsg](r, role.ChannelID(1))
	d2 := Get[testMsg](r, role.ChannelID(2))
	if d1 == d2 {
		t.Fatalf("Get returned the same dispatcher for different channel ids")
	}
}

func TestRegistryGetDistinguishesType(t *testing.T) {
	r := NewRegistry()
	d1 := Get[testMsg](r, role.ChannelID(1))
	d2 := Get[int](r, role.ChannelID(1))
	if any(d1) == any(d2) {
		t.Fatalf("Get returned dispatchers of different types as equal")
	}
}

func TestRegistryGetConcurrentCreateReturnsSameInstance(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	results := make([]*Dispatcher[testMsg], 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Get[testMsg](r, role.ChannelID(7))
		}(i)
	}
	wg.Wait()

	for _, d := range results[1:] {
		if d != results[0] {
			t.Fatalf("concurrent Get calls produced different dispatcher instances")
		}
	}
}
