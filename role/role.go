// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package role

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ChannelID is a stable 64-bit identifier for a channel name, unique per
// channel name within a process universe.
type ChannelID uint64

// HashChannelName derives a ChannelID from a human-readable channel name.
// The hash is deterministic: the same name always produces the same id,
// in this process and any other.
func HashChannelName(name string) ChannelID {
	return ChannelID(xxhash.Sum64String(name))
}

// Reliability selects the delivery guarantee for a channel.
type Reliability int

const (
	// BestEffort delivers messages without retry; loss is acceptable.
	BestEffort Reliability = iota
	// Reliable retries delivery at the transport level where the
	// transport supports it (rtps). Intra and shm are always
	// best-effort with respect to the consumer keeping up.
	Reliable
)

func (r Reliability) String() string {
	if r == Reliable {
		return "reliable"
	}
	return "best_effort"
}

// Durability selects whether late-joining subscribers see history.
type Durability int

const (
	// Volatile durability means late joiners see nothing published
	// before they subscribed.
	Volatile Durability = iota
	// TransientLocal durability means a late joiner may read the
	// cache buffer's currently resident history on first attach.
	TransientLocal
)

// QoS bundles the quality-of-service knobs attached to every channel.
type QoS struct {
	// HistoryDepth is the Cache Buffer capacity (K in spec terms).
	// Must be at least 1; zero is a construction-time error.
	HistoryDepth int
	Reliability  Reliability
	Durability   Durability
}

// DefaultQoS is used when an endpoint is constructed without an explicit
// profile.
var DefaultQoS = QoS{HistoryDepth: 16, Reliability: BestEffort, Durability: Volatile}

// Identity is an opaque value distinguishing endpoint instances that
// otherwise share the same role attributes (e.g. two writers on the same
// channel in the same process).
type Identity [16]byte

// NewIdentity generates a fresh random Identity.
func NewIdentity() Identity {
	return Identity(uuid.New())
}

func (id Identity) String() string {
	return uuid.UUID(id).String()
}

// Attributes describes an endpoint: where it runs, what channel it
// speaks on, and under what QoS.
type Attributes struct {
	HostName    string
	ProcessID   int
	NodeName    string
	ChannelName string
	ChannelID   ChannelID
	MessageType string
	Identity    Identity
	QoS         QoS
}

// NewAttributes builds Attributes for a channel, deriving ChannelID from
// ChannelName and generating a fresh Identity.
func NewAttributes(hostName string, processID int, nodeName, channelName, messageType string, qos QoS) Attributes {
	return Attributes{
		HostName:    hostName,
		ProcessID:   processID,
		NodeName:    nodeName,
		ChannelName: channelName,
		ChannelID:   HashChannelName(channelName),
		MessageType: messageType,
		Identity:    NewIdentity(),
		QoS:         qos,
	}
}

// Endpoint is a producer or consumer attached to a channel: an Identity
// plus the RoleAttributes describing it.
type Endpoint struct {
	ID         Identity
	Attributes Attributes
}
