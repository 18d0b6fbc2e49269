// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package buffer

import "testing"

func TestCacheInsertSequenceMonotonic(t *testing.T) {
	c, err := NewCache[int](4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	var last uint64
	for i := 0; i < 10; i++ {
		seq := c.Insert(i)
		if seq <= last {
			t.Fatalf("sequence did not increase: %d <= %d", seq, last)
		}
		last = seq
	}
}

func TestCacheResidencyIsMinCapacityAndInserted(t *testing.T) {
	c, err := NewCache[int](4)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got len %d", c.Len())
	}
	for i := 0; i < 2; i++ {
		c.Insert(i)
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
	for i := 0; i < 10; i++ {
		c.Insert(i)
	}
	if c.Len() != 4 {
		t.Fatalf("expected len capped at capacity 4, got %d", c.Len())
	}
}

func TestCacheFetchEvictedReturnsFalse(t *testing.T) {
	c, err := NewCache[string](2)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	seq1 := c.Insert("a")
	c.Insert("b")
	c.Insert("c")

	if _, ok := c.Fetch(seq1); ok {
		t.Fatalf("expected evicted sequence %d to be unfetchable", seq1)
	}
}

func TestCacheFetchReturnsExactValue(t *testing.T) {
	c, err := NewCache[string](3)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	c.Insert("a")
	seq := c.Insert("b")
	c.Insert("c")

	v, ok := c.Fetch(seq)
	if !ok || v != "b" {
		t.Fatalf("Fetch(%d) = %q, %v; want \"b\", true", seq, v, ok)
	}
}

func TestCacheLatest(t *testing.T) {
	c, err := NewCache[int](3)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if _, _, ok := c.Latest(); ok {
		t.Fatalf("expected no latest on empty cache")
	}
	c.Insert(1)
	c.Insert(2)
	seq3 := c.Insert(3)

	v, seq, ok := c.Latest()
	if !ok || v != 3 || seq != seq3 {
		t.Fatalf("Latest() = %d, %d, %v; want 3, %d, true", v, seq, ok, seq3)
	}
}

func TestCacheFetchAtOrAfterReturnsOnlyNewer(t *testing.T) {
	c, err := NewCache[int](5)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	var seqs []uint64
	for i := 0; i < 5; i++ {
		seqs = append(seqs, c.Insert(i))
	}

	got := c.FetchAtOrAfter(seqs[2])
	want := []int{3, 4}
	if len(got) != len(want) {
		t.Fatalf("FetchAtOrAfter(%d) = %v; want %v", seqs[2], got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FetchAtOrAfter(%d) = %v; want %v", seqs[2], got, want)
		}
	}
}

func TestCacheFetchAtOrAfterPredatesRetention(t *testing.T) {
	c, err := NewCache[int](3)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		c.Insert(i)
	}
	// Ask for everything since the very beginning; only the last 3
	// resident values should come back.
	got := c.FetchAtOrAfter(0)
	want := []int{7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("FetchAtOrAfter(0) = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("FetchAtOrAfter(0) = %v; want %v", got, want)
		}
	}
}

func TestCacheFetchOldestAtOrAfterReturnsOldestQualifying(t *testing.T) {
	c, err := NewCache[int](5)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	var seqs []uint64
	for i := 0; i < 5; i++ {
		seqs = append(seqs, c.Insert(i*10))
	}

	value, actual, ok := c.FetchOldestAtOrAfter(seqs[1])
	if !ok {
		t.Fatal("FetchOldestAtOrAfter returned ok=false")
	}
	if value != 10 || actual != seqs[1] {
		t.Fatalf("FetchOldestAtOrAfter(%d) = (%d, %d); want (10, %d)", seqs[1], value, actual, seqs[1])
	}
}

func TestCacheFetchOldestAtOrAfterPredatesRetentionReturnsOldestResident(t *testing.T) {
	c, err := NewCache[int](3)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	var seqs []uint64
	for i := 0; i < 10; i++ {
		seqs = append(seqs, c.Insert(i))
	}

	// Asking for sequence 0 (long evicted) should return the oldest
	// still-resident entry rather than missing.
	value, actual, ok := c.FetchOldestAtOrAfter(0)
	if !ok {
		t.Fatal("FetchOldestAtOrAfter(0) returned ok=false")
	}
	if value != 7 || actual != seqs[7] {
		t.Fatalf("FetchOldestAtOrAfter(0) = (%d, %d); want (7, %d)", value, actual, seqs[7])
	}
}

func TestCacheFetchOldestAtOrAfterFutureSequenceMisses(t *testing.T) {
	c, err := NewCache[int](5)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		c.Insert(i)
	}
	if _, _, ok := c.FetchOldestAtOrAfter(100); ok {
		t.Fatal("FetchOldestAtOrAfter should miss when no inserted sequence is that new yet")
	}
}

func TestCacheOldestAndLatestSequence(t *testing.T) {
	c, err := NewCache[int](3)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	if c.OldestSequence() != 0 || c.LatestSequence() != 0 {
		t.Fatalf("expected zero sequences on empty cache")
	}
	for i := 0; i < 5; i++ {
		c.Insert(i)
	}
	if c.OldestSequence() != 3 {
		t.Fatalf("OldestSequence() = %d, want 3", c.OldestSequence())
	}
	if c.LatestSequence() != 5 {
		t.Fatalf("LatestSequence() = %d, want 5", c.LatestSequence())
	}
}

func TestChannelInsertInvokesHook(t *testing.T) {
	ch, err := NewChannel[int](42, 2)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	var gotSeq uint64
	var gotMsg int
	ch.OnInsert = func(seq uint64, msg int) {
		gotSeq, gotMsg = seq, msg
	}
	seq := ch.Insert(7)
	if gotSeq != seq || gotMsg != 7 {
		t.Fatalf("OnInsert hook got (%d, %d); want (%d, 7)", gotSeq, gotMsg, seq)
	}
	if ch.ID() != 42 {
		t.Fatalf("ID() = %d, want 42", ch.ID())
	}
}

func TestNewCacheRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := NewCache[int](capacity); err == nil {
			t.Fatalf("NewCache(%d) = nil error, want an error", capacity)
		}
	}
}

func TestNewChannelRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := NewChannel[int](42, 0); err == nil {
		t.Fatal("NewChannel with capacity 0 = nil error, want an error")
	}
}
