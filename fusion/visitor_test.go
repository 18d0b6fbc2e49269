// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package fusion

import "testing"

func TestVisitorNoFusionBeforeSecondaryReady(t *testing.T) {
	primary := newTestChannel[int](1, 8)
	secondary := newTestChannel[string](2, 8)
	v := NewVisitor(primary, 8, Secondary(secondary))

	primary.Insert(1)
	if _, ok := v.TryFetch(); ok {
		t.Fatalf("expected no fusion tuple before secondary has produced")
	}
}

func TestVisitorFusesOnceAllSecondariesReady(t *testing.T) {
	primary := newTestChannel[int](1, 8)
	secondaryA := newTestChannel[string](2, 8)
	secondaryB := newTestChannel[float64](3, 8)
	v := NewVisitor(primary, 8, Secondary(secondaryA), Secondary(secondaryB))

	primary.Insert(1) // no secondary ready yet
	secondaryA.Insert("a1")
	primary.Insert(2) // secondaryB still not ready
	secondaryB.Insert(1.5)
	seq := primary.Insert(3) // both ready now

	tuple, ok := v.TryFetch()
	if !ok {
		t.Fatalf("expected a fused tuple")
	}
	if tuple.Sequence != seq {
		t.Fatalf("tuple.Sequence = %d, want %d", tuple.Sequence, seq)
	}
	if tuple.Primary != 3 {
		t.Fatalf("tuple.Primary = %d, want 3", tuple.Primary)
	}
	if tuple.Secondaries[0].(string) != "a1" {
		t.Fatalf("tuple.Secondaries[0] = %v, want a1", tuple.Secondaries[0])
	}
	if tuple.Secondaries[1].(float64) != 1.5 {
		t.Fatalf("tuple.Secondaries[1] = %v, want 1.5", tuple.Secondaries[1])
	}

	if _, ok := v.TryFetch(); ok {
		t.Fatalf("expected exactly one fusion tuple, got a second")
	}
}

func TestVisitorSecondaryReuseOnSlowRate(t *testing.T) {
	primary := newTestChannel[int](1, 16)
	secondary := newTestChannel[string](2, 16)
	v := NewVisitor(primary, 16, Secondary(secondary))

	secondary.Insert("only-value")
	for i := 0; i < 10; i++ {
		primary.Insert(i)
	}

	var seen []string
	for {
		tuple, ok := v.TryFetch()
		if !ok {
			break
		}
		seen = append(seen, tuple.Secondaries[0].(string))
	}
	if len(seen) != 10 {
		t.Fatalf("expected 10 fused tuples, got %d", len(seen))
	}
	for _, s := range seen {
		if s != "only-value" {
			t.Fatalf("expected repeated secondary value, got %q", s)
		}
	}
}

func TestVisitorSequenceMonotonicAcrossFetches(t *testing.T) {
	primary := newTestChannel[int](1, 16)
	secondary := newTestChannel[int](2, 16)
	v := NewVisitor(primary, 16, Secondary(secondary))

	secondary.Insert(0)
	for i := 0; i < 20; i++ {
		primary.Insert(i)
	}

	var last uint64
	count := 0
	for {
		tuple, ok := v.TryFetch()
		if !ok {
			break
		}
		if tuple.Sequence <= last {
			t.Fatalf("sequence did not increase: %d <= %d", tuple.Sequence, last)
		}
		last = tuple.Sequence
		count++
	}
	if count != 20 {
		t.Fatalf("expected 20 tuples, got %d", count)
	}
}

func TestVisitorSkipsAheadWhenConsumerFallsBehind(t *testing.T) {
	primary := newTestChannel[int](1, 4) // small fusion depth forces eviction
	secondary := newTestChannel[int](2, 4)
	v := NewVisitor(primary, 4, Secondary(secondary))

	secondary.Insert(0)
	for i := 0; i < 10; i++ {
		primary.Insert(i)
	}

	tuple, ok := v.TryFetch()
	if !ok {
		t.Fatalf("expected a tuple despite falling behind")
	}
	if tuple.Sequence == 1 {
		t.Fatalf("expected TryFetch to skip ahead past evicted sequences, got sequence 1")
	}
}

func TestVisitorNoSecondariesFusesEveryPrimaryInsert(t *testing.T) {
	primary := newTestChannel[int](1, 8)
	v := NewVisitor(primary, 8)

	for i := 0; i < 5; i++ {
		primary.Insert(i)
	}
	count := 0
	for {
		if _, ok := v.TryFetch(); !ok {
			break
		}
		count++
	}
	if count != 5 {
		t.Fatalf("expected 5 tuples with zero secondaries, got %d", count)
	}
}
