// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the Transmitter/Receiver endpoints (C5)
// and the Transport Facade (C6): the process-wide context object that
// owns the rtps participant and the three dispatch registries, and
// constructs per-channel endpoints against them.
//
// Three transport families back the Transmitter/Receiver interfaces:
//
//   - Intra: inserts into a process-local buffer.Channel, whose insert
//     hook drives the local dispatch.Dispatcher; no encoding.
//   - Shm: encodes with lib/codec and relays through an mmap-backed
//     segment plus a notify.Notifier wakeup, between endpoints that
//     share one segment value; the segment's slot bookkeeping is not
//     visible to other processes.
//   - Rtps: encodes with lib/codec and hands the payload to an
//     rtps.Participant, for cross-host delivery.
//
// A fourth family, Hybrid, is not a distinct wire protocol: it picks
// one of the three above per subscriber based on locality (same
// process, same host, different host) and keeps that choice current
// as the topology changes, per spec.md §4.4.
package transport
