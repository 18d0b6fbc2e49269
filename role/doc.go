// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package role defines the identity and attribute types shared by every
// endpoint in the transport: channel ids, process/host identity, and the
// quality-of-service profile attached to a channel.
//
// [ChannelID] is a stable 64-bit hash of a channel's human-readable name,
// computed once by [HashChannelName] and carried everywhere else as a
// plain uint64 — dispatch tables, notifier registrations, and topology
// records all key off it directly rather than re-hashing strings.
package role
