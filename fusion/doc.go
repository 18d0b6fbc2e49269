// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package fusion implements the Data Visitor / Fusion Engine (C8): the
// consumer-edge component that synchronizes up to four input channels
// into tuples keyed by a designated primary channel.
//
// Cyber RT hand-writes one C++ template specialization per input arity
// (DataVisitor<M0>, DataVisitor<M0,M1>, ... DataVisitor<M0,M1,M2,M3>).
// Per spec.md §9 REDESIGN FLAGS, this collapses to one generic type,
// [Visitor], parameterized only over the primary message type; the 0-3
// secondary inputs are held as a runtime-sized slice of [secondaryInput],
// an interface that erases each secondary's own message type behind
// fetchLatest.
package fusion
