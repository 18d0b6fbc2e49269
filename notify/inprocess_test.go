// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"testing"
	"time"
)

func TestInProcessNotifyListen(t *testing.T) {
	n := NewInProcess(4)
	defer n.Shutdown()

	want := ReadableInfo{ChannelID: 7, Sequence: 42}
	if err := n.Notify(want); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := n.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if got != want {
		t.Fatalf("Listen() = %+v, want %+v", got, want)
	}
}

func TestInProcessListenCancel(t *testing.T) {
	n := NewInProcess(1)
	defer n.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := n.Listen(ctx); err == nil {
		t.Fatalf("expected error from Listen with canceled context")
	}
}

func TestInProcessShutdownUnblocksListen(t *testing.T) {
	n := NewInProcess(1)

	errCh := make(chan error, 1)
	go func() {
		_, err := n.Listen(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	n.Shutdown()

	select {
	case err := <-errCh:
		if err != ErrShutdown {
			t.Fatalf("Listen() error = %v, want ErrShutdown", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Listen did not unblock after Shutdown")
	}
}

func TestInProcessNotifyAfterShutdown(t *testing.T) {
	n := NewInProcess(1)
	n.Shutdown()
	if err := n.Notify(ReadableInfo{}); err != ErrShutdown {
		t.Fatalf("Notify after shutdown = %v, want ErrShutdown", err)
	}
}
