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

// Package srpstore implements spec.md §3.5's SRP neighbour store: a map
// from NodeId to the neighbour's last-reported safety data plus a
// reserved slot for the own node's latest safety data and its
// last-written watermark. Mirroring spec.md §5's locking discipline, the
// own-safety-data slot and the neighbour table are guarded by two
// separate mutexes, always acquired own-SD before neighbour-table.
package srpstore

import (
	"sync"
	"time"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

// NeighbourEntry is one row of the neighbour table.
type NeighbourEntry struct {
	SafetyData wiretypes.SafetyData
	Seqno      wiretypes.VarSeqno
	Timestamp  time.Time
}

// Store holds the own node's safety data and the table of neighbours
// learned from incoming ExtendedSafetyData. The zero value is not usable;
// construct with New.
type Store struct {
	ownMu        sync.Mutex
	ownData      wiretypes.SafetyData
	ownTimestamp time.Time
	ownSeqno     wiretypes.VarSeqno
	ownSet       bool

	neighboursMu sync.Mutex
	neighbours   map[wiretypes.NodeId]NeighbourEntry
}

// New returns an empty Store.
func New() *Store {
	return &Store{neighbours: make(map[wiretypes.NodeId]NeighbourEntry)}
}

// SetOwnSafetyData records the client's current safety data and refreshes
// the keepalive watermark to now. It is the only writer of ownTimestamp,
// per spec.md §4.14's "now − ownSDTimestamp ≤ keepaliveTimeoutMS" check.
func (s *Store) SetOwnSafetyData(data wiretypes.SafetyData, now time.Time) {
	s.ownMu.Lock()
	defer s.ownMu.Unlock()
	s.ownData = data
	s.ownTimestamp = now
	s.ownSet = true
}

// NextOwnExtendedSafetyData returns the own node's current safety data
// wrapped for transmission, with seqno incremented, if its watermark is
// still within keepaliveTimeout of now. The second return is false if no
// safety data has ever been set or the keepalive has expired, per
// spec.md §4.14 and testable property 6.
func (s *Store) NextOwnExtendedSafetyData(ownNodeId wiretypes.NodeId, now time.Time, keepaliveTimeout time.Duration) (wiretypes.ExtendedSafetyData, bool) {
	s.ownMu.Lock()
	defer s.ownMu.Unlock()
	if !s.ownSet || now.Sub(s.ownTimestamp) > keepaliveTimeout {
		return wiretypes.ExtendedSafetyData{}, false
	}
	s.ownSeqno = s.ownSeqno.Next()
	return wiretypes.ExtendedSafetyData{
		Data:      s.ownData,
		NodeId:    ownNodeId,
		Timestamp: wiretypes.Now(),
		Seqno:     s.ownSeqno,
	}, true
}

// Upsert records or refreshes a neighbour's entry, per spec.md §4.14's
// receiver rule. Callers must have already dropped self-originated
// frames (nodeId == ownNodeId) before calling.
func (s *Store) Upsert(nodeId wiretypes.NodeId, data wiretypes.SafetyData, seqno wiretypes.VarSeqno, now time.Time) {
	s.neighboursMu.Lock()
	defer s.neighboursMu.Unlock()
	s.neighbours[nodeId] = NeighbourEntry{SafetyData: data, Seqno: seqno, Timestamp: now}
}

// Lookup returns a neighbour's current entry.
func (s *Store) Lookup(nodeId wiretypes.NodeId) (NeighbourEntry, bool) {
	s.neighboursMu.Lock()
	defer s.neighboursMu.Unlock()
	e, ok := s.neighbours[nodeId]
	return e, ok
}

// Len reports how many neighbours are currently tracked.
func (s *Store) Len() int {
	s.neighboursMu.Lock()
	defer s.neighboursMu.Unlock()
	return len(s.neighbours)
}

// Neighbours returns a snapshot of every currently tracked neighbour,
// keyed by NodeId, for operator-facing listings (dcpctl's "srp
// neighbours").
func (s *Store) Neighbours() map[wiretypes.NodeId]NeighbourEntry {
	s.neighboursMu.Lock()
	defer s.neighboursMu.Unlock()
	out := make(map[wiretypes.NodeId]NeighbourEntry, len(s.neighbours))
	for id, e := range s.neighbours {
		out[id] = e
	}
	return out
}

// Scrub implements spec.md §4.14's scrubber: remove every neighbour whose
// timestamp is older than scrubbingTimeout. It returns the evicted node
// ids.
func (s *Store) Scrub(now time.Time, scrubbingTimeout time.Duration) []wiretypes.NodeId {
	s.neighboursMu.Lock()
	defer s.neighboursMu.Unlock()

	var evicted []wiretypes.NodeId
	for id, e := range s.neighbours {
		if now.Sub(e.Timestamp) > scrubbingTimeout {
			delete(s.neighbours, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
