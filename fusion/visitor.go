// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package fusion

import (
	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/role"
)

// maxSecondaries mirrors spec.md §2's "N ∈ {1..4}": one primary plus up
// to three secondary inputs.
const maxSecondaries = 3

// secondaryInput is a type-erased view of one secondary buffer.Channel,
// letting Visitor hold a []secondaryInput without itself being generic
// over every secondary's message type.
type secondaryInput interface {
	// channelID identifies the secondary, purely for diagnostics.
	channelID() role.ChannelID
	// fetchLatest returns the most recently inserted value on this
	// secondary, or false if nothing has been inserted yet.
	fetchLatest() (any, bool)
}

type secondaryChannel[S any] struct {
	ch *buffer.Channel[S]
}

func (s secondaryChannel[S]) channelID() role.ChannelID { return s.ch.ID() }

func (s secondaryChannel[S]) fetchLatest() (any, bool) {
	v, _, ok := s.ch.Cache().Latest()
	return v, ok
}

// Secondary wraps a secondary input channel for use with [NewVisitor].
// S is the secondary's own message type, independent of the primary's.
func Secondary[S any](ch *buffer.Channel[S]) secondaryInput {
	return secondaryChannel[S]{ch: ch}
}

// Tuple is one fused record: the primary message plus, in registration
// order, the latest value from each secondary at the moment the primary
// arrived. Secondaries holds `any` because each secondary may carry a
// distinct message type; callers type-assert by index, matching the
// call site's own knowledge of what was passed to [NewVisitor].
type Tuple[P any] struct {
	Sequence    uint64
	Primary     P
	Secondaries []any
}

// Visitor implements the All-Latest-keyed-by-primary fusion rule of
// spec.md §4.6. It is registered as the primary buffer.Channel's
// OnInsert hook at construction time, so every primary insert is
// evaluated for fusion synchronously, with no polling and no consumer
// blocking.
type Visitor[P any] struct {
	primary      *buffer.Channel[P]
	secondaries  []secondaryInput
	fused        *buffer.Cache[Tuple[P]]
	nextExpected uint64
}

// NewVisitor constructs a Visitor over one primary channel and 0-3
// secondary channels (build secondary arguments with [Secondary]).
// fusionDepth sizes the internal fusion cache; it should be at least
// the primary's own history depth so a consumer reading at the
// primary's own rate never observes a skip (spec.md §4.6's edge case).
// NewVisitor panics if more than three secondaries are supplied or if
// fusionDepth is less than 1 — both are construction-time
// misconfigurations, not runtime conditions (spec.md §7: "invalid
// quality-of-service profile" class of error).
func NewVisitor[P any](primary *buffer.Channel[P], fusionDepth int, secondaries ...secondaryInput) *Visitor[P] {
	if len(secondaries) > maxSecondaries {
		panic("fusion: at most 3 secondary inputs are supported")
	}
	fused, err := buffer.NewCache[Tuple[P]](fusionDepth)
	if err != nil {
		panic("fusion: " + err.Error())
	}
	v := &Visitor[P]{
		primary:      primary,
		secondaries:  secondaries,
		fused:        fused,
		nextExpected: 1,
	}
	primary.OnInsert = v.onPrimaryInsert
	return v
}

// onPrimaryInsert is the primary channel's OnInsert hook. It implements
// spec.md §4.6 exactly: on every primary insert, fetch each secondary's
// latest value; if all secondaries have produced at least once, emit a
// fused tuple stamped with the primary's own sequence number. A primary
// arrival before any secondary has a value yields no tuple — this is
// not an error (spec.md §7 "fusion not ready").
func (v *Visitor[P]) onPrimaryInsert(seq uint64, msg P) {
	secondaryValues := make([]any, len(v.secondaries))
	for i, s := range v.secondaries {
		value, ok := s.fetchLatest()
		if !ok {
			return
		}
		secondaryValues[i] = value
	}
	v.fused.Insert(Tuple[P]{
		Sequence:    seq,
		Primary:     msg,
		Secondaries: secondaryValues,
	})
}

// TryFetch returns the oldest fused tuple with sequence number at or
// after the visitor's next-expected cursor, advancing the cursor past
// it on success. It never blocks: with nothing ready, it returns the
// zero Tuple and false (spec.md §5: "try_fetch is non-blocking").
//
// If the consumer has fallen far enough behind that the oldest resident
// fusion tuple's sequence exceeds next-expected, TryFetch jumps forward
// to that tuple and the consumer silently observes the gap — this is
// documented policy (spec.md §4.6), not an error.
func (v *Visitor[P]) TryFetch() (Tuple[P], bool) {
	tuple, actual, ok := v.fused.FetchOldestAtOrAfter(v.nextExpected)
	if !ok {
		return Tuple[P]{}, false
	}
	v.nextExpected = actual + 1
	return tuple, true
}

// PrimaryChannelID returns the channel id this visitor fuses against.
func (v *Visitor[P]) PrimaryChannelID() role.ChannelID {
	return v.primary.ID()
}

// NextExpectedSequence reports the fusion-cache sequence number the next
// TryFetch call will look for first, mainly for diagnostics and tests.
// The fusion cache numbers tuples in the order they were fused, so this
// is not the primary channel's sequence number (Tuple.Sequence carries
// that).
func (v *Visitor[P]) NextExpectedSequence() uint64 {
	return v.nextExpected
}
