// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"strconv"
	"strings"

	"github.com/cyberbus/cyberbus/role"
)

// Kind classifies what a ChangeMsg is about, matching spec.md §6's
// change_type / role_type enumeration.
type Kind int

const (
	Participant Kind = iota
	Node
	Channel
	Service
)

func (k Kind) String() string {
	switch k {
	case Participant:
		return "participant"
	case Node:
		return "node"
	case Channel:
		return "channel"
	case Service:
		return "service"
	default:
		return "unknown"
	}
}

// Operate is the join/leave direction of a ChangeMsg.
type Operate int

const (
	Join Operate = iota
	Leave
)

func (o Operate) String() string {
	if o == Leave {
		return "leave"
	}
	return "join"
}

// ChangeMsg is the topology event format of spec.md §6:
// {timestamp_ns, change_type, operate_type, role_type, role_attr}.
type ChangeMsg struct {
	TimestampNS int64
	ChangeType  Kind
	OperateType Operate
	RoleType    Kind
	RoleAttr    role.Attributes
}

// ParticipantName formats a participant's wire name, spec.md §6's
// "<host_name>+<decimal_process_id>".
func ParticipantName(hostName string, processID int) string {
	return hostName + "+" + strconv.Itoa(processID)
}

// ParseParticipantName splits a participant name on the first '+'. It
// returns ok=false for names with no '+', which callers must silently
// drop per spec.md §4.5/§7 ("malformed names are dropped silently").
//
// Grounded on topology_manager.cc's ParseParticipantName: split on the
// first '+', parse the remainder as a decimal integer, reject on
// either failure.
func ParseParticipantName(name string) (hostName string, processID int, ok bool) {
	i := strings.IndexByte(name, '+')
	if i < 0 {
		return "", 0, false
	}
	hostName = name[:i]
	pid, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return "", 0, false
	}
	return hostName, pid, true
}
