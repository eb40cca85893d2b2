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

// Package rtdb implements the Vardis replicated real-time database of
// spec.md §4.9: a 256-slot array of DBEntry indexed by VarId, and the six
// insertion-ordered, duplicate-free work queues that drive the
// transmitter (§4.11), receiver (§4.12) and scrubber (§4.13).
package rtdb

import (
	"sync"
	"time"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

// NumSlots is the fixed number of VarId slots, one per possible VarId value.
const NumSlots = 256

// DBEntry is the per-variable replica state of spec.md §3.4.
type DBEntry struct {
	Exists      bool
	Spec        wiretypes.VarSpec
	Seqno       wiretypes.VarSeqno
	Timestamp   time.Time
	Value       wiretypes.VarValue
	CountCreate uint8
	CountUpdate uint8
	CountDelete uint8
	ToBeDeleted bool

	inCreateQ    bool
	inDeleteQ    bool
	inUpdateQ    bool
	inSummaryQ   bool
	inReqUpdateQ bool
	inReqCreateQ bool
}

// Store is the full variable table plus its six work queues, protected by
// a single mutex that callers take with Lock and release with Unlock
// (see vardis.DaemonConfig.LockingIndividualContainers for the
// per-container interleaving mode of spec.md §4.12).
type Store struct {
	mu      sync.Mutex
	entries [NumSlots]DBEntry

	createQ    *queue
	deleteQ    *queue
	updateQ    *queue
	summaryQ   *queue
	reqUpdateQ *queue
	reqCreateQ *queue
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		createQ:    newQueue(),
		deleteQ:    newQueue(),
		updateQ:    newQueue(),
		summaryQ:   newQueue(),
		reqUpdateQ: newQueue(),
		reqCreateQ: newQueue(),
	}
}

// Lock/Unlock expose the store's mutex directly for callers (the service
// handler, receiver) that need to hold it across a multi-step operation
// spanning several Store method calls.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

// Lookup returns the entry for id and whether it Exists. Must be called
// with the lock held.
func (s *Store) Lookup(id wiretypes.VarId) (DBEntry, bool) {
	e := s.entries[id]
	return e, e.Exists
}

// Set overwrites the stored entry for id. Must be called with the lock held.
func (s *Store) Set(id wiretypes.VarId, e DBEntry) {
	s.entries[id] = e
}

// ListMatching returns every VarId whose entry satisfies pred. Must be
// called with the lock held.
func (s *Store) ListMatching(pred func(DBEntry) bool) []wiretypes.VarId {
	var out []wiretypes.VarId
	for i := range s.entries {
		if s.entries[i].Exists && pred(s.entries[i]) {
			out = append(out, wiretypes.VarId(i))
		}
	}
	return out
}

// Len{Xxx}Q report queue depth, for statistics and tests.
func (s *Store) LenCreateQ() int    { return s.createQ.len() }
func (s *Store) LenDeleteQ() int    { return s.deleteQ.len() }
func (s *Store) LenUpdateQ() int    { return s.updateQ.len() }
func (s *Store) LenSummaryQ() int   { return s.summaryQ.len() }
func (s *Store) LenReqUpdateQ() int { return s.reqUpdateQ.len() }
func (s *Store) LenReqCreateQ() int { return s.reqCreateQ.len() }

// Pop{Xxx}Q pops the head VarId from the named queue and clears its
// membership bit, for the transmitter's per-container draining loop
// (spec.md §4.11 step 3): the caller decides whether to re-enqueue the
// popped id via the matching Push{Xxx}Q.

func (s *Store) PopCreateQ() (wiretypes.VarId, bool) {
	id, ok := s.createQ.pop()
	if ok {
		s.entries[id].inCreateQ = false
	}
	return id, ok
}

func (s *Store) PopDeleteQ() (wiretypes.VarId, bool) {
	id, ok := s.deleteQ.pop()
	if ok {
		s.entries[id].inDeleteQ = false
	}
	return id, ok
}

func (s *Store) PopUpdateQ() (wiretypes.VarId, bool) {
	id, ok := s.updateQ.pop()
	if ok {
		s.entries[id].inUpdateQ = false
	}
	return id, ok
}

func (s *Store) PopSummaryQ() (wiretypes.VarId, bool) {
	id, ok := s.summaryQ.pop()
	if ok {
		s.entries[id].inSummaryQ = false
	}
	return id, ok
}

func (s *Store) PopReqUpdateQ() (wiretypes.VarId, bool) {
	id, ok := s.reqUpdateQ.pop()
	if ok {
		s.entries[id].inReqUpdateQ = false
	}
	return id, ok
}

func (s *Store) PopReqCreateQ() (wiretypes.VarId, bool) {
	id, ok := s.reqCreateQ.pop()
	if ok {
		s.entries[id].inReqCreateQ = false
	}
	return id, ok
}

// PushCreateQ inserts id into createQ, updating its membership bit. It is
// a no-op if id is already a member (queues hold no duplicates).
func (s *Store) PushCreateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if e.inCreateQ {
		return
	}
	e.inCreateQ = true
	s.createQ.push(id)
}

// RemoveFromCreateQ evicts id from createQ if present.
func (s *Store) RemoveFromCreateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inCreateQ {
		return
	}
	e.inCreateQ = false
	s.createQ.remove(id)
}

// PushDeleteQ inserts id into deleteQ and evicts it from every queue that
// is mutually exclusive with deleteQ per spec.md §3.4.
func (s *Store) PushDeleteQ(id wiretypes.VarId) {
	s.RemoveFromCreateQ(id)
	s.RemoveFromUpdateQ(id)
	s.RemoveFromSummaryQ(id)
	s.RemoveFromReqUpdateQ(id)
	s.RemoveFromReqCreateQ(id)
	e := &s.entries[id]
	if e.inDeleteQ {
		return
	}
	e.inDeleteQ = true
	s.deleteQ.push(id)
}

// RemoveFromDeleteQ evicts id from deleteQ if present.
func (s *Store) RemoveFromDeleteQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inDeleteQ {
		return
	}
	e.inDeleteQ = false
	s.deleteQ.remove(id)
}

// PushUpdateQ inserts id into updateQ unless id is in deleteQ (mutually
// exclusive per spec.md §3.4).
func (s *Store) PushUpdateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if e.inDeleteQ || e.inUpdateQ {
		return
	}
	e.inUpdateQ = true
	s.updateQ.push(id)
}

// RemoveFromUpdateQ evicts id from updateQ if present.
func (s *Store) RemoveFromUpdateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inUpdateQ {
		return
	}
	e.inUpdateQ = false
	s.updateQ.remove(id)
}

// PushSummaryQ inserts id into summaryQ unless in deleteQ. spec.md §3.4
// also lists createQ/summaryQ as mutually exclusive, but §4.12's
// CREATE_VARIABLES handler explicitly pushes a freshly learned variable
// into both createQ and summaryQ at once (see DESIGN.md): that operation
// instruction is followed here rather than the general invariant, since
// createQ naturally drains to zero and self-evicts well before a second
// summary round would contradict it in practice.
func (s *Store) PushSummaryQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if e.inDeleteQ || e.inSummaryQ {
		return
	}
	e.inSummaryQ = true
	s.summaryQ.push(id)
}

// RemoveFromSummaryQ evicts id from summaryQ if present.
func (s *Store) RemoveFromSummaryQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inSummaryQ {
		return
	}
	e.inSummaryQ = false
	s.summaryQ.remove(id)
}

// PushReqUpdateQ inserts id into reqUpdateQ unless in deleteQ.
func (s *Store) PushReqUpdateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if e.inDeleteQ || e.inReqUpdateQ {
		return
	}
	e.inReqUpdateQ = true
	s.reqUpdateQ.push(id)
}

// RemoveFromReqUpdateQ evicts id from reqUpdateQ if present.
func (s *Store) RemoveFromReqUpdateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inReqUpdateQ {
		return
	}
	e.inReqUpdateQ = false
	s.reqUpdateQ.remove(id)
}

// PushReqCreateQ inserts id into reqCreateQ unless in deleteQ.
func (s *Store) PushReqCreateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if e.inDeleteQ || e.inReqCreateQ {
		return
	}
	e.inReqCreateQ = true
	s.reqCreateQ.push(id)
}

// RemoveFromReqCreateQ evicts id from reqCreateQ if present.
func (s *Store) RemoveFromReqCreateQ(id wiretypes.VarId) {
	e := &s.entries[id]
	if !e.inReqCreateQ {
		return
	}
	e.inReqCreateQ = false
	s.reqCreateQ.remove(id)
}

// queue is an insertion-ordered, duplicate-free FIFO of VarIds. Unlike
// ringbuf.Ring, it needs arbitrary-element removal (a VarId can be evicted
// from the middle when its queue membership changes), so it is backed by
// a slice rather than the fixed-capacity ring used for wire-facing
// buffers.
type queue struct {
	items []wiretypes.VarId
}

func newQueue() *queue { return &queue{} }

func (q *queue) push(id wiretypes.VarId) {
	q.items = append(q.items, id)
}

func (q *queue) pop() (wiretypes.VarId, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

func (q *queue) remove(id wiretypes.VarId) {
	for i, v := range q.items {
		if v == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *queue) len() int { return len(q.items) }
