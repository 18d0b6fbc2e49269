// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package rtps

import "context"

// Signaler abstracts the mechanism for exchanging WebRTC session
// descriptions between rtps participants. Signaling uses vanilla ICE:
// all candidates are gathered before the SDP is published, so
// connection establishment requires exactly one signaling round trip
// (offer -> answer).
//
// Adapted from the teacher's transport.Signaler (Matrix state events in
// production, in-process channels in tests). The teacher's
// Matrix-backed signaler is dropped (see DESIGN.md). This package ships
// only MemorySignaler, which connects participants within one process;
// topology.Manager carries no session descriptions, so a multi-host
// deployment supplies its own Signaler.
type Signaler interface {
	// PublishOffer publishes a complete SDP offer directed at a target
	// participant, keyed by (localName, targetName).
	PublishOffer(ctx context.Context, localName, targetName, sdp string) error

	// PublishAnswer publishes a complete SDP answer in response to a
	// previously received offer, keyed by (offererName, localName).
	PublishAnswer(ctx context.Context, offererName, localName, sdp string) error

	// PollOffers returns pending offers directed at localName.
	PollOffers(ctx context.Context, localName string) ([]SignalMessage, error)

	// PollAnswers returns pending answers to offers originated by
	// localName.
	PollAnswers(ctx context.Context, localName string) ([]SignalMessage, error)
}

// SignalMessage is one signaling message (offer or answer).
type SignalMessage struct {
	// PeerName is the other party's participant name: the offerer for
	// a received offer, the answerer for a received answer.
	PeerName string

	// SDP is the complete Session Description Protocol string with all
	// ICE candidates embedded.
	SDP string

	// Timestamp is the ISO 8601 creation time of the signal, used to
	// filter already-seen signals on repeated polls.
	Timestamp string
}
