// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the shared CBOR encoding configuration used
// by every wire-facing package in this module. The Shm and Rtps
// transports both call MarshalEnvelope/UnmarshalEnvelope rather than
// the bare Marshal/Unmarshal pair, so a message's channel id and
// publish time travel across the wire alongside its payload — the
// sender's own Cache-assigned sequence number does not, since it has
// no meaning once it crosses a process boundary. notify.Condition and
// notify.Multicast frame their much smaller, fixed-width ReadableInfo
// wakeup signal by hand instead (see notify/condition.go,
// notify/multicast.go) rather than through this package, since that
// format needs fixed byte offsets into a shared ring, not a
// self-describing CBOR item.
//
// This package provides one shared CBOR encoding and decoding mode so
// every caller encodes identically without duplicating configuration.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes.
//
// For buffer-oriented operations (files, tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For envelope-framed transport payloads:
//
//	data, err := codec.MarshalEnvelope(env)
//	env, err := codec.UnmarshalEnvelope[MsgType](data)
//
// For stream-oriented operations (sockets, data channels):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR.
//   - `json` tag: fxamacker/cbor v2 reads `json` tags as fallback when
//     `cbor` tags are absent, so a single `json` tag controls field
//     naming and omitempty whether the type is reached through a CBOR
//     or a JSON path elsewhere in a caller's own stack.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
