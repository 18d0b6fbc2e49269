// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"sync"

	"github.com/cyberbus/cyberbus/role"
	"golang.org/x/sys/unix"
)

// shmBlockDescriptor locates one relayed message inside a shmSegment.
// Generation is a monotonically increasing counter local to the
// segment, unrelated to the receiving Cache's own sequence numbers —
// it exists purely so a reader woken by a notify.Condition can tell
// whether the slot it is about to read still holds the block it was
// woken for, or has already been overwritten by a newer one.
type shmBlockDescriptor struct {
	ChannelID  role.ChannelID
	Generation uint64
	offset     int
	length     int
}

// shmSegment is an anonymous mmap-backed ring of fixed-size slots.
// Append claims the next slot round-robin, overwriting the oldest
// occupant — the same "advance write position, wrap" discipline as the
// teacher's byte ring, generalized to track slot boundaries so a
// reader can map in one message at a time instead of an arbitrary byte
// range.
//
// Slot bookkeeping (descriptors, generations, the per-channel latest
// block) lives in ordinary Go memory beside the mapping, not inside it.
// A memfd-backed segment (see newShmSegmentMemfd) lets another process
// map the same bytes, but only the process holding this shmSegment
// value can locate messages in them. NewShmSegment uses the anonymous
// mapping (see newShmSegment).
type shmSegment struct {
	mu         sync.Mutex
	region     []byte
	slotSize   int
	slotCount  int
	nextSlot   int
	nextGen    uint64
	slotOf     []shmBlockDescriptor // parallel to slots, valid iff Generation > 0
	latest     map[role.ChannelID]shmBlockDescriptor
	dropCount  uint64
}

func newShmSegmentRegion(region []byte, slotSize int) *shmSegment {
	slotCount := len(region) / slotSize
	if slotCount < 1 {
		slotCount = 1
	}
	return &shmSegment{
		region:    region,
		slotSize:  slotSize,
		slotCount: slotCount,
		slotOf:    make([]shmBlockDescriptor, slotCount),
		latest:    make(map[role.ChannelID]shmBlockDescriptor),
	}
}

// newShmSegment allocates an anonymous MAP_SHARED mmap region of
// slotCount slots of slotSize bytes each. It has no file descriptor to
// hand to another process, so it serves same-process use and tests.
func newShmSegment(slotSize, slotCount int) (*shmSegment, error) {
	if slotSize < 1 {
		slotSize = 1
	}
	if slotCount < 1 {
		slotCount = 1
	}
	region, err := unix.Mmap(-1, 0, slotSize*slotCount,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("transport: mmap shm segment: %w", err)
	}
	return newShmSegmentRegion(region, slotSize), nil
}

// newShmSegmentMemfd allocates the ring backed by a memfd_create file
// descriptor, returning the fd so it can be handed (over a Unix socket
// SCM_RIGHTS message, or inherited across fork/exec) to a genuinely
// separate process that needs to map the same region.
func newShmSegmentMemfd(name string, slotSize, slotCount int) (*shmSegment, int, error) {
	if slotSize < 1 {
		slotSize = 1
	}
	if slotCount < 1 {
		slotCount = 1
	}
	size := slotSize * slotCount
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, -1, fmt.Errorf("transport: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, -1, fmt.Errorf("transport: ftruncate memfd: %w", err)
	}
	region, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, -1, fmt.Errorf("transport: mmap memfd: %w", err)
	}
	return newShmSegmentRegion(region, slotSize), fd, nil
}

// NewShmSegment allocates a same-host shm segment for use with a
// Facade, sized to hold slotCount messages of up to slotSize bytes
// each. It is the exported entry point process bootstrap code (e.g.
// cmd/mainboard) uses to build the segment a Facade needs; the
// unexported constructors above stay internal because tests construct
// them directly within this package.
func NewShmSegment(slotSize, slotCount int) (*shmSegment, error) {
	return newShmSegment(slotSize, slotCount)
}

// Append writes payload into the next slot, overwriting whatever
// previously lived there. It returns false — a drop — if payload is
// larger than one slot; the caller counts this as a transport drop
// per spec.md §7 rather than treating it as an error.
func (s *shmSegment) Append(channelID role.ChannelID, payload []byte) (shmBlockDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(payload) > s.slotSize {
		s.dropCount++
		return shmBlockDescriptor{}, false
	}

	slot := s.nextSlot
	s.nextSlot = (s.nextSlot + 1) % s.slotCount
	s.nextGen++

	offset := slot * s.slotSize
	copy(s.region[offset:offset+len(payload)], payload)

	desc := shmBlockDescriptor{
		ChannelID:  channelID,
		Generation: s.nextGen,
		offset:     offset,
		length:     len(payload),
	}
	s.slotOf[slot] = desc
	s.latest[channelID] = desc
	return desc, true
}

// Latest returns the most recently appended block for channelID.
func (s *shmSegment) Latest(channelID role.ChannelID) (shmBlockDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.latest[channelID]
	return desc, ok
}

// Read copies out the bytes described by desc, first re-validating
// that the slot desc points at still holds that exact generation —
// guarding against the ring having wrapped and overwritten the slot
// between Append and Read (the torn-read case, spec.md §4.1's stamped-
// slot re-validation rule applied to the shm ring instead of the Cache
// ring). A stale desc returns false rather than corrupted bytes.
func (s *shmSegment) Read(desc shmBlockDescriptor) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := desc.offset / s.slotSize
	if slot < 0 || slot >= s.slotCount {
		return nil, false
	}
	current := s.slotOf[slot]
	if current.Generation != desc.Generation || current.ChannelID != desc.ChannelID {
		return nil, false
	}
	out := make([]byte, desc.length)
	copy(out, s.region[desc.offset:desc.offset+desc.length])
	return out, true
}

// DropCount reports how many Append calls were rejected because the
// payload exceeded the slot size.
func (s *shmSegment) DropCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropCount
}

// Close unmaps the region. Idempotent.
func (s *shmSegment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.region == nil {
		return nil
	}
	err := unix.Munmap(s.region)
	s.region = nil
	return err
}
