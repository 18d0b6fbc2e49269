// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package rtps provides the reliable-datagram transport: communication
// between participants on different hosts. The reliable-datagram layer
// itself is treated as an external collaborator reachable only through
// the Participant/Publisher/Subscriber interfaces below; this package
// ships exactly one concrete implementation of them, WebRTCParticipant,
// built on pion's WebRTC SCTP data channels.
package rtps

import "github.com/cyberbus/cyberbus/role"

// Publisher sends payloads on one channel to every currently connected
// peer; a peer with no subscriber for that channel discards the frame.
type Publisher interface {
	Publish(payload []byte) error
	Close() error
}

// Subscriber receives payloads on one channel via the callback supplied
// to Participant.Subscriber. Close stops delivery; it does not affect
// other subscribers on the same channel.
type Subscriber interface {
	Close() error
}

// DiscoveryEvent reports a peer participant joining or leaving.
type DiscoveryEvent struct {
	PeerName string
	Joined   bool
}

// Participant is one node in the reliable-datagram mesh. A concrete
// Participant owns whatever peer connections the underlying transport
// needs and multiplexes any number of Publishers/Subscribers over them.
type Participant interface {
	// Name returns this participant's identity as known to peers.
	Name() string

	// Publisher returns a Publisher for the given channel, creating any
	// transport resources (e.g. a per-peer data channel) the first time
	// a channel is published.
	Publisher(channel role.ChannelID) (Publisher, error)

	// Subscriber registers onMessage to be called with the raw payload
	// of every message received on the given channel. onMessage must
	// not block for long.
	Subscriber(channel role.ChannelID, onMessage func([]byte)) (Subscriber, error)

	// OnDiscovery registers a callback invoked whenever a peer
	// participant is discovered or leaves the mesh.
	OnDiscovery(func(DiscoveryEvent))

	// Shutdown tears down every peer connection. Idempotent.
	Shutdown() error
}
