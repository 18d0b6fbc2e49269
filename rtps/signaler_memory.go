// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package rtps

import (
	"context"
	"sync"
	"time"
)

var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is an in-process Signaler for tests and single-process
// demos: offers and answers are exchanged through an internal map, no
// network round trip involved. Two WebRTCParticipant instances sharing
// a MemorySignaler can establish a PeerConnection without any external
// signaling channel.
//
// Adapted unchanged in structure from the teacher's
// transport.MemorySignaler.
type MemorySignaler struct {
	mu       sync.Mutex
	offers   map[string]SignalMessage // key: "offerer|target"
	answers  map[string]SignalMessage // key: "offerer|target"
	lastSeen map[string]time.Time
}

// NewMemorySignaler creates a new in-process signaler.
func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:   make(map[string]SignalMessage),
		answers:  make(map[string]SignalMessage),
		lastSeen: make(map[string]time.Time),
	}
}

const signalingSeparator = "|"

func (s *MemorySignaler) PublishOffer(_ context.Context, localName, targetName, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := localName + signalingSeparator + targetName
	s.offers[key] = SignalMessage{PeerName: localName, SDP: sdp, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, offererName, localName, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := offererName + signalingSeparator + localName
	s.answers[key] = SignalMessage{PeerName: localName, SDP: sdp, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	return nil
}

func (s *MemorySignaler) PollOffers(_ context.Context, localName string) ([]SignalMessage, error) {
	return s.pollSignals(localName, s.offers, "offers", matchOfferKey)
}

func (s *MemorySignaler) PollAnswers(_ context.Context, localName string) ([]SignalMessage, error) {
	return s.pollSignals(localName, s.answers, "answers", matchAnswerKey)
}

type signalKeyMatcher func(key, localName string) (peer string, ok bool)

func matchOfferKey(key, localName string) (string, bool) {
	offerer, target, ok := splitSignalKey(key)
	if !ok || target != localName {
		return "", false
	}
	return offerer, true
}

func matchAnswerKey(key, localName string) (string, bool) {
	offerer, target, ok := splitSignalKey(key)
	if !ok || offerer != localName {
		return "", false
	}
	return target, true
}

func splitSignalKey(key string) (first, second string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

func (s *MemorySignaler) pollSignals(localName string, store map[string]SignalMessage, label string, match signalKeyMatcher) ([]SignalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []SignalMessage
	for key, msg := range store {
		if _, ok := match(key, localName); !ok {
			continue
		}
		timestamp, err := time.Parse(time.RFC3339Nano, msg.Timestamp)
		if err != nil {
			continue
		}
		seenKey := label + ":" + localName + ":" + key
		if last, ok := s.lastSeen[seenKey]; ok && !timestamp.After(last) {
			continue
		}
		s.lastSeen[seenKey] = timestamp
		messages = append(messages, msg)
	}
	return messages, nil
}
