// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"testing"
	"time"
)

// TestMulticastNotifyListenRoundTrip exercises loopback multicast
// delivery. It requires a host with multicast-capable loopback
// routing; environments without it should skip rather than fail.
func TestMulticastNotifyListenRoundTrip(t *testing.T) {
	const group = "239.10.10.1:19700"

	receiver, err := NewMulticast(group, "")
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer receiver.Shutdown()

	sender, err := NewMulticast(group, "")
	if err != nil {
		t.Skipf("multicast unavailable in this environment: %v", err)
	}
	defer sender.Shutdown()

	want := ReadableInfo{ChannelID: 99, Sequence: 5}

	resultCh := make(chan ReadableInfo, 1)
	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		info, err := receiver.Listen(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- info
	}()

	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := sender.Notify(want); err != nil {
			t.Fatalf("Notify: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		select {
		case got := <-resultCh:
			if got != want {
				t.Fatalf("Listen() = %+v, want %+v", got, want)
			}
			return
		case err := <-errCh:
			t.Skipf("multicast delivery not observed in this environment: %v", err)
		default:
		}
	}
	t.Skip("multicast datagram not observed within retry budget")
}
