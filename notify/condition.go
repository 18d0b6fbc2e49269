// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cyberbus/cyberbus/role"
	"golang.org/x/sys/unix"
)

// conditionRingSlots is the number of ReadableInfo records retained in
// the shared-memory ring backing a Condition notifier. The ring is a
// hint channel only: a slow reader that falls behind simply misses
// intermediate notifications and picks up the latest on its next read
// of the channel buffer itself.
const conditionRingSlots = 256

// conditionSlotSize is the encoded size in bytes of one ReadableInfo
// record: 8 bytes channel id, 8 bytes sequence.
const conditionSlotSize = 16

// Condition is the shared-memory notifier variant: a single
// anonymous-mmap ring of ReadableInfo records (the records themselves
// carry only a channel id and sequence, never the payload), paired with
// a Unix-domain SOCK_DGRAM socket pair used purely to wake a blocked
// Listen call. The ring is mapped MAP_PRIVATE and the socket pair is
// created inside NewCondition, so both are reachable only through this
// Condition value within one process; no other process can open or
// attach to them. The wakeup datagram carries no payload of its own; the
// reader always re-reads the ring after waking, so multiple
// notifications that arrive before a reader wakes are naturally
// coalesced into one ring scan.
//
// Grounded on the teacher's general preference for Unix sockets as the
// cross-process signaling primitive (lib/ipc's "sent over the
// launcher's Unix IPC socket" doc comment) and its use of
// golang.org/x/sys/unix for raw mmap (lib/secret.Buffer).
type Condition struct {
	mu   sync.Mutex
	ring []byte
	next uint64 // next ring slot to write, monotonically increasing

	readConn  *net.UnixConn
	writeConn *net.UnixConn

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// NewCondition allocates a Condition notifier: an anonymous mmap ring
// and a connected SOCK_DGRAM socket pair for the wakeup signal.
func NewCondition() (*Condition, error) {
	ring, err := unix.Mmap(-1, 0, conditionRingSlots*conditionSlotSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("notify: mmap ring: %w", err)
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		unix.Munmap(ring)
		return nil, fmt.Errorf("notify: socketpair: %w", err)
	}

	readOSFile := os.NewFile(uintptr(fds[0]), "notify-read")
	readFile, err := net.FileConn(readOSFile)
	readOSFile.Close()
	if err != nil {
		unix.Munmap(ring)
		unix.Close(fds[1])
		return nil, fmt.Errorf("notify: wrap read fd: %w", err)
	}
	writeOSFile := os.NewFile(uintptr(fds[1]), "notify-write")
	writeFile, err := net.FileConn(writeOSFile)
	writeOSFile.Close()
	if err != nil {
		readFile.Close()
		return nil, fmt.Errorf("notify: wrap write fd: %w", err)
	}

	return &Condition{
		ring:      ring,
		readConn:  readFile.(*net.UnixConn),
		writeConn: writeFile.(*net.UnixConn),
		shutdown:  make(chan struct{}),
	}, nil
}

// Notify writes info into the next ring slot and sends a one-byte
// wakeup datagram. Concurrent Notify calls are serialized by mu so ring
// writes never tear.
func (c *Condition) Notify(info ReadableInfo) error {
	c.mu.Lock()
	select {
	case <-c.shutdown:
		c.mu.Unlock()
		return ErrShutdown
	default:
	}
	slot := int(c.next % conditionRingSlots)
	c.next++
	off := slot * conditionSlotSize
	binary.LittleEndian.PutUint64(c.ring[off:off+8], uint64(info.ChannelID))
	binary.LittleEndian.PutUint64(c.ring[off+8:off+16], info.Sequence)
	c.mu.Unlock()

	_, err := c.writeConn.Write([]byte{1})
	if err != nil {
		return fmt.Errorf("notify: wakeup write: %w", err)
	}
	return nil
}

// Listen blocks until a wakeup datagram arrives, draining any
// additional datagrams already queued so bursts coalesce into one
// wakeup, then returns the most recently written ring slot.
func (c *Condition) Listen(ctx context.Context) (ReadableInfo, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.readConn.SetReadDeadline(time.Now())
		case <-done:
		case <-c.shutdown:
			c.readConn.SetReadDeadline(time.Now())
		}
	}()
	defer close(done)

	buf := make([]byte, 1)
	_, err := c.readConn.Read(buf)
	if err != nil {
		select {
		case <-c.shutdown:
			return ReadableInfo{}, ErrShutdown
		default:
		}
		if ctx.Err() != nil {
			c.readConn.SetReadDeadline(time.Time{})
			return ReadableInfo{}, ctx.Err()
		}
		return ReadableInfo{}, fmt.Errorf("notify: wakeup read: %w", err)
	}
	// Drain wakeups that are already queued so a burst of Notify calls
	// coalesces into this one return. The socket is non-blocking under
	// the runtime poller, so the raw read loop stops at EAGAIN.
	if raw, err := c.readConn.SyscallConn(); err == nil {
		raw.Read(func(fd uintptr) bool {
			for {
				if _, err := unix.Read(int(fd), buf); err != nil {
					return true
				}
			}
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next == 0 {
		return ReadableInfo{}, fmt.Errorf("notify: woken with empty ring")
	}
	slot := int((c.next - 1) % conditionRingSlots)
	off := slot * conditionSlotSize
	info := ReadableInfo{
		ChannelID: role.ChannelID(binary.LittleEndian.Uint64(c.ring[off : off+8])),
		Sequence:  binary.LittleEndian.Uint64(c.ring[off+8 : off+16]),
	}
	return info, nil
}

// Shutdown closes the socket pair and unmaps the ring. Idempotent.
func (c *Condition) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.shutdown)
		c.readConn.Close()
		c.writeConn.Close()
		c.mu.Lock()
		unix.Munmap(c.ring)
		c.ring = nil
		c.mu.Unlock()
	})
}
