// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberbus/cyberbus/role"
	"github.com/cyberbus/cyberbus/rtps"
)

type lifecycleState int32

const (
	uninitialized lifecycleState = iota
	initialized
	shutDown
)

// nowFunc is overridable in tests so ChangeMsg.TimestampNS is
// deterministic; production code leaves it at time.Now.
var nowFunc = time.Now

type changeListener struct {
	id uint64
	fn func(ChangeMsg)
}

// Manager is the Topology Manager (C7): a process-scoped (not global)
// tracker of participants, nodes, channels, and services. Per spec.md
// §9 REDESIGN FLAGS ("process-wide singletons... reimplement as
// explicitly constructed context objects"), Manager is an ordinary
// constructed value threaded down from the process entry point rather
// than a package-level singleton; nothing prevents a test from creating
// several independent Managers.
//
// State machine: Uninitialized -> Initialized -> ShutDown (terminal),
// enforced with a CAS on state, matching spec.md §4.5.
type Manager struct {
	state atomic.Int32

	hostName  string
	processID int

	participant rtps.Participant

	nodes    *NodeManager
	channels *ChannelManager
	services *ServiceManager

	mu             sync.Mutex
	listeners      []changeListener
	nextListenerID uint64
}

// New constructs an uninitialized Manager. Call Init to attach it to a
// participant and begin tracking discovery events.
func New() *Manager {
	return &Manager{}
}

// Init attaches the manager to participant (which the caller creates
// under the name ParticipantName(hostName, processID)), records this
// process's host and pid, and starts listening for the participant's
// discovery events.
// Init is idempotent: calling it again after a successful Init, or
// after Shutdown, is a no-op that returns nil (spec.md P6/§4.5 "init
// returns success if already initialized").
func (m *Manager) Init(hostName string, processID int, participant rtps.Participant) error {
	if !m.state.CompareAndSwap(int32(uninitialized), int32(initialized)) {
		return nil
	}
	m.hostName = hostName
	m.processID = processID
	m.participant = participant
	m.nodes = newNodeManager()
	m.channels = newChannelManager()
	m.services = newServiceManager()
	participant.OnDiscovery(m.onDiscovery)
	return nil
}

// Shutdown tears down the manager. It runs at most once regardless of
// how many times it is called (spec.md P6).
func (m *Manager) Shutdown() {
	if !m.state.CompareAndSwap(int32(initialized), int32(shutDown)) {
		// Either never initialized or already shut down; both are a
		// no-op per spec.md's idempotence requirement. Uninitialized
		// also transitions straight to shut down so a Manager that is
		// discarded before Init still reports terminal state.
		m.state.CompareAndSwap(int32(uninitialized), int32(shutDown))
		return
	}
	if m.participant != nil {
		m.participant.Shutdown()
	}
	m.mu.Lock()
	m.listeners = nil
	m.mu.Unlock()
}

// isShutDown reports whether Shutdown has completed, per spec.md §5's
// "every public operation checks is_shutdown" rule.
func (m *Manager) isShutDown() bool {
	return lifecycleState(m.state.Load()) == shutDown
}

// AddChangeListener registers fn to be called with every ChangeMsg this
// manager emits, and returns a handle for RemoveChangeListener.
func (m *Manager) AddChangeListener(fn func(ChangeMsg)) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextListenerID++
	m.listeners = append(m.listeners, changeListener{id: m.nextListenerID, fn: fn})
	return m.nextListenerID
}

// RemoveChangeListener unregisters a listener by handle. Unknown
// handles are a no-op.
func (m *Manager) RemoveChangeListener(token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.listeners {
		if l.id == token {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Nodes, Channels, and Services expose the three sub-manager
// directories for direct queries (e.g. the Hybrid transport's
// Channels().Subscribers lookup).
func (m *Manager) Nodes() *NodeManager       { return m.nodes }
func (m *Manager) Channels() *ChannelManager { return m.channels }
func (m *Manager) Services() *ServiceManager { return m.services }

// JoinChannel registers attr as a live channel endpoint and emits a
// CHANNEL/JOIN change event. Called by transport endpoint constructors
// so a Hybrid transport in this process can discover this endpoint;
// the record stays with this Manager and is not sent to peer
// processes. A no-op once shut down.
func (m *Manager) JoinChannel(attr role.Attributes) {
	if m.isShutDown() {
		return
	}
	m.channels.Join(attr)
	m.emit(ChangeMsg{
		TimestampNS: nowFunc().UnixNano(),
		ChangeType:  Channel,
		OperateType: Join,
		RoleType:    Channel,
		RoleAttr:    attr,
	})
}

// LeaveChannel deregisters a channel endpoint and emits a CHANNEL/LEAVE
// change event. A no-op once shut down.
func (m *Manager) LeaveChannel(attr role.Attributes) {
	if m.isShutDown() {
		return
	}
	m.channels.Leave(attr.Identity)
	m.emit(ChangeMsg{
		TimestampNS: nowFunc().UnixNano(),
		ChangeType:  Channel,
		OperateType: Leave,
		RoleType:    Channel,
		RoleAttr:    attr,
	})
}

// onDiscovery is the rtps.Participant.OnDiscovery callback: it converts
// a raw discovery event into a ChangeMsg, fans PARTICIPANT/LEAVE out to
// every sub-manager (pruning roles bound to the departed process), and
// broadcasts the result to application listeners.
//
// Grounded on topology_manager.cc's OnParticipantChange: Convert first,
// drop silently on failure, forward OnTopoModuleLeave to every
// sub-manager on LEAVE before firing the change signal.
func (m *Manager) onDiscovery(ev rtps.DiscoveryEvent) {
	if m.isShutDown() {
		return
	}
	msg, ok := m.convert(ev)
	if !ok {
		return
	}
	if msg.OperateType == Leave {
		host, pid := msg.RoleAttr.HostName, msg.RoleAttr.ProcessID
		m.nodes.OnTopoModuleLeave(host, pid)
		m.channels.OnTopoModuleLeave(host, pid)
		m.services.OnTopoModuleLeave(host, pid)
	}
	m.emit(msg)
}

func (m *Manager) convert(ev rtps.DiscoveryEvent) (ChangeMsg, bool) {
	hostName, processID, ok := ParseParticipantName(ev.PeerName)
	if !ok {
		return ChangeMsg{}, false
	}
	op := Join
	if !ev.Joined {
		op = Leave
	}
	return ChangeMsg{
		TimestampNS: nowFunc().UnixNano(),
		ChangeType:  Participant,
		OperateType: op,
		RoleType:    Participant,
		RoleAttr: role.Attributes{
			HostName:  hostName,
			ProcessID: processID,
		},
	}, true
}

func (m *Manager) emit(msg ChangeMsg) {
	m.mu.Lock()
	listeners := make([]changeListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()
	for _, l := range listeners {
		l.fn(msg)
	}
}
