// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package topology implements the Topology Manager (C7): the
// process-wide tracker of live participants, nodes, channels, and
// services, driven by join/leave discovery events from the rtps
// participant.
//
// Grounded directly on
// original_source/cyber/service_discovery/topology_manager.cc:
// CreateParticipant's "{host_name}+{process_id}" participant naming,
// Convert/ParseParticipantName's name-splitting and silent-drop-on-
// malformed-name behavior, and OnParticipantChange's fan-out of
// OnTopoModuleLeave to every sub-manager before broadcasting the change
// to application listeners.
package topology
