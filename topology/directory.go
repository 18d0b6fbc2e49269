// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"sync"

	"github.com/cyberbus/cyberbus/role"
)

// directory is the role registry shared by NodeManager, ChannelManager,
// and ServiceManager: a set of role.Attributes keyed by Identity, with
// lookups by predicate.
//
// Grounded on the teacher's discovery-directory idiom of matching a
// predicate over a registered set (a Matcher/FindAll style query
// surface), here narrowed to the two queries the topology sub-managers
// actually need: "everything on a given host+pid" (for leave pruning)
// and "everything with a given channel id" (for the Hybrid transport's
// subscriber lookup).
type directory struct {
	mu    sync.RWMutex
	roles map[role.Identity]role.Attributes
}

func newDirectory() *directory {
	return &directory{roles: make(map[role.Identity]role.Attributes)}
}

// join adds or replaces the role registered under attr.Identity.
// Registering the same identity twice with identical attributes leaves
// the directory in the same observable state (spec.md P5).
func (d *directory) join(attr role.Attributes) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[attr.Identity] = attr
}

// leave removes one identity. Unknown identities are a no-op.
func (d *directory) leave(id role.Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.roles, id)
}

// leaveHostProcess removes every role bound to the given host and
// process id, implementing OnTopoModuleLeave.
func (d *directory) leaveHostProcess(hostName string, processID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, attr := range d.roles {
		if attr.HostName == hostName && attr.ProcessID == processID {
			delete(d.roles, id)
		}
	}
}

// findAll returns every registered role satisfying match, in no
// particular order.
func (d *directory) findAll(match func(role.Attributes) bool) []role.Attributes {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []role.Attributes
	for _, attr := range d.roles {
		if match(attr) {
			out = append(out, attr)
		}
	}
	return out
}

// len reports how many roles are currently registered, mainly for
// tests.
func (d *directory) len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.roles)
}
