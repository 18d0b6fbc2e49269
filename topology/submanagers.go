// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"github.com/cyberbus/cyberbus/role"
)

// NodeManager tracks the roles of live processing nodes across the
// process universe.
type NodeManager struct{ dir *directory }

func newNodeManager() *NodeManager { return &NodeManager{dir: newDirectory()} }

// Join registers a node's role attributes.
func (m *NodeManager) Join(attr role.Attributes) { m.dir.join(attr) }

// Leave removes one node registration by identity.
func (m *NodeManager) Leave(id role.Identity) { m.dir.leave(id) }

// OnTopoModuleLeave prunes every node bound to a process that has left
// the topology.
func (m *NodeManager) OnTopoModuleLeave(hostName string, processID int) {
	m.dir.leaveHostProcess(hostName, processID)
}

// Nodes returns every currently registered node role for the given
// node name.
func (m *NodeManager) Nodes(nodeName string) []role.Attributes {
	return m.dir.findAll(func(a role.Attributes) bool { return a.NodeName == nodeName })
}

// Count reports how many node roles are currently registered.
func (m *NodeManager) Count() int { return m.dir.len() }

// ChannelManager tracks the roles of live channel endpoints
// (transmitters and receivers) across the process universe. This is
// the directory the Hybrid transport consults to learn which
// subscribers exist for a channel and where they run.
type ChannelManager struct{ dir *directory }

func newChannelManager() *ChannelManager { return &ChannelManager{dir: newDirectory()} }

// Join registers an endpoint's role attributes under its channel.
func (m *ChannelManager) Join(attr role.Attributes) { m.dir.join(attr) }

// Leave removes one endpoint registration by identity.
func (m *ChannelManager) Leave(id role.Identity) { m.dir.leave(id) }

// OnTopoModuleLeave prunes every channel endpoint bound to a process
// that has left the topology.
func (m *ChannelManager) OnTopoModuleLeave(hostName string, processID int) {
	m.dir.leaveHostProcess(hostName, processID)
}

// Subscribers returns every currently registered endpoint for the
// given channel id.
func (m *ChannelManager) Subscribers(channelID role.ChannelID) []role.Attributes {
	return m.dir.findAll(func(a role.Attributes) bool { return a.ChannelID == channelID })
}

// Count reports how many channel-endpoint roles are currently
// registered.
func (m *ChannelManager) Count() int { return m.dir.len() }

// ServiceManager tracks the roles of live RPC-style services across the
// process universe. Cyberbus's core transport does not itself expose a
// service/RPC surface (spec.md scopes that out), but the sub-manager
// exists because spec.md §4.5 names three sub-managers unconditionally
// and a service discovery layer built on this core would need it.
type ServiceManager struct{ dir *directory }

func newServiceManager() *ServiceManager { return &ServiceManager{dir: newDirectory()} }

// Join registers a service's role attributes.
func (m *ServiceManager) Join(attr role.Attributes) { m.dir.join(attr) }

// Leave removes one service registration by identity.
func (m *ServiceManager) Leave(id role.Identity) { m.dir.leave(id) }

// OnTopoModuleLeave prunes every service bound to a process that has
// left the topology.
func (m *ServiceManager) OnTopoModuleLeave(hostName string, processID int) {
	m.dir.leaveHostProcess(hostName, processID)
}

// Services returns every currently registered service role matching
// the given service name.
func (m *ServiceManager) Services(serviceName string) []role.Attributes {
	return m.dir.findAll(func(a role.Attributes) bool { return a.ChannelName == serviceName })
}

// Count reports how many service roles are currently registered.
func (m *ServiceManager) Count() int { return m.dir.len() }
