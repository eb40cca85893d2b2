/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package srp implements the State Reporting Protocol of spec.md §4.14: a
// lighter sibling of Vardis that broadcasts a node's own safety data
// (position/velocity) and maintains a scrubbed neighbour table, riding on
// the same BP transport.
package srp

import (
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Transmit implements spec.md §4.14's transmitter tick: if the own node's
// safety data is still within keepaliveTimeout of its last refresh, it is
// serialized into a as a single ExtendedSafetyData record and true is
// returned. Otherwise a is left untouched and false is returned — the
// caller must not submit an empty payload to BP.
func Transmit(a *asm.Area, store *srpstore.Store, ownNodeId wiretypes.NodeId, now time.Time, keepaliveTimeout time.Duration) (bool, Status) {
	esd, ok := store.NextOwnExtendedSafetyData(ownNodeId, now, keepaliveTimeout)
	if !ok {
		return false, StatusKeepaliveExpired
	}
	if err := esd.Serialize(a); err != nil {
		return false, StatusInternalError
	}
	return true, StatusOK
}

// Receive implements spec.md §4.14's receiver: decode one
// ExtendedSafetyData from a, drop it if self-originated, otherwise upsert
// the neighbour table.
func Receive(a *asm.Area, store *srpstore.Store, ownNodeId wiretypes.NodeId, now time.Time) Status {
	var esd wiretypes.ExtendedSafetyData
	if err := esd.Deserialize(a); err != nil {
		return StatusMalformedFrame
	}
	if esd.NodeId == ownNodeId {
		return StatusOK
	}
	store.Upsert(esd.NodeId, esd.Data, esd.Seqno, now)
	return StatusOK
}

// Scrub implements spec.md §4.14's scrubber tick.
func Scrub(store *srpstore.Store, now time.Time, scrubbingTimeout time.Duration) []wiretypes.NodeId {
	return store.Scrub(now, scrubbingTimeout)
}
