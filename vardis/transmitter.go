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

package vardis

import (
	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/rtdb"
)

// MaxSummariesPerContainer bounds how many summaries one SUMMARIES
// container may advertise, per spec.md §4.11 step 2.4.
const MaxSummariesPerContainer = 50

// FillPayload implements the transmitter's per-tick container generation
// of spec.md §4.11: containers are appended to a in priority order
// (CREATE, DELETE, REQUEST_VARCREATES, SUMMARIES, UPDATES,
// REQUEST_VARUPDATES), each producing at most one container, until one
// fails to fit or its source queue is exhausted. It returns the number of
// containers actually written; callers submit the payload only if this is
// > 0.
//
// store must already be locked by the caller for the duration of the call
// (compare DaemonConfig.LockingIndividualContainers, the receiver's
// per-container vs. whole-payload locking of spec.md §4.12 — the transmitter always
// holds the store lock for the whole call, since it is draining its own
// work queues rather than racing with the receiver's per-container
// updates).
func FillPayload(a *asm.Area, store *rtdb.Store, maxSummaries int) int {
	if maxSummaries <= 0 || maxSummaries > MaxSummariesPerContainer {
		maxSummaries = MaxSummariesPerContainer
	}

	written := 0

	if fillCreateVariables(a, store) {
		written++
	}
	if fillDeleteVariables(a, store) {
		written++
	}
	if fillRequestVarCreates(a, store) {
		written++
	}
	if fillSummaries(a, store, maxSummaries) {
		written++
	}
	if fillUpdates(a, store) {
		written++
	}
	if fillRequestVarUpdates(a, store) {
		written++
	}
	return written
}

func fillCreateVariables(a *asm.Area, store *rtdb.Store) bool {
	var recs []CreateVariableRecord
	for {
		id, ok := store.PopCreateQ()
		if !ok {
			break
		}
		e, exists := store.Lookup(id)
		if !exists {
			store.RemoveFromCreateQ(id)
			continue
		}
		rec := CreateVariableRecord{Spec: e.Spec, Value: e.Value}
		trial := append(append([]CreateVariableRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeCreateVariables)
		if !fits {
			store.PushCreateQ(id)
			break
		}
		recs = trial
		e.CountCreate--
		if e.CountCreate == 0 {
			store.RemoveFromCreateQ(id)
		} else {
			store.PushCreateQ(id)
		}
		store.Set(id, e)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeCreateVariables(a, recs)
	return err == nil && wrote
}

func fillDeleteVariables(a *asm.Area, store *rtdb.Store) bool {
	var recs []DeleteVariableRecord
	for {
		id, ok := store.PopDeleteQ()
		if !ok {
			break
		}
		e, exists := store.Lookup(id)
		if !exists {
			store.RemoveFromDeleteQ(id)
			continue
		}
		rec := DeleteVariableRecord{VarId: id}
		trial := append(append([]DeleteVariableRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeDeleteVariables)
		if !fits {
			store.PushDeleteQ(id)
			break
		}
		recs = trial
		e.CountDelete--
		if e.CountDelete == 0 {
			store.RemoveFromDeleteQ(id)
			e.Exists = false
		} else {
			store.PushDeleteQ(id)
		}
		store.Set(id, e)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeDeleteVariables(a, recs)
	return err == nil && wrote
}

func fillRequestVarCreates(a *asm.Area, store *rtdb.Store) bool {
	var recs []RequestVarCreateRecord
	for {
		id, ok := store.PopReqCreateQ()
		if !ok {
			break
		}
		rec := RequestVarCreateRecord{VarId: id}
		trial := append(append([]RequestVarCreateRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeRequestVarCreates)
		if !fits {
			store.PushReqCreateQ(id)
			break
		}
		recs = trial
		store.RemoveFromReqCreateQ(id)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeRequestVarCreates(a, recs)
	return err == nil && wrote
}

func fillSummaries(a *asm.Area, store *rtdb.Store, maxSummaries int) bool {
	var recs []SummaryRecord
	for len(recs) < maxSummaries {
		id, ok := store.PopSummaryQ()
		if !ok {
			break
		}
		e, exists := store.Lookup(id)
		if !exists {
			store.RemoveFromSummaryQ(id)
			continue
		}
		rec := SummaryRecord{VarId: id, Seqno: e.Seqno}
		trial := append(append([]SummaryRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeSummaries)
		if !fits {
			store.PushSummaryQ(id)
			break
		}
		recs = trial
		store.RemoveFromSummaryQ(id)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeSummaries(a, recs)
	return err == nil && wrote
}

func fillUpdates(a *asm.Area, store *rtdb.Store) bool {
	var recs []UpdateRecord
	for {
		id, ok := store.PopUpdateQ()
		if !ok {
			break
		}
		e, exists := store.Lookup(id)
		if !exists {
			store.RemoveFromUpdateQ(id)
			continue
		}
		rec := UpdateRecord{VarId: id, Seqno: e.Seqno, Value: e.Value}
		trial := append(append([]UpdateRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeUpdates)
		if !fits {
			store.PushUpdateQ(id)
			break
		}
		recs = trial
		e.CountUpdate--
		if e.CountUpdate == 0 {
			store.RemoveFromUpdateQ(id)
		} else {
			store.PushUpdateQ(id)
		}
		store.Set(id, e)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeUpdates(a, recs)
	return err == nil && wrote
}

func fillRequestVarUpdates(a *asm.Area, store *rtdb.Store) bool {
	var recs []RequestVarUpdateRecord
	for {
		id, ok := store.PopReqUpdateQ()
		if !ok {
			break
		}
		e, exists := store.Lookup(id)
		if !exists {
			store.RemoveFromReqUpdateQ(id)
			continue
		}
		rec := RequestVarUpdateRecord{VarId: id, Seqno: e.Seqno}
		trial := append(append([]RequestVarUpdateRecord{}, recs...), rec)
		fits, _ := trialFits(a, trial, SerializeRequestVarUpdates)
		if !fits {
			store.PushReqUpdateQ(id)
			break
		}
		recs = trial
		store.RemoveFromReqUpdateQ(id)
	}
	if len(recs) == 0 {
		return false
	}
	wrote, err := SerializeRequestVarUpdates(a, recs)
	return err == nil && wrote
}

// trialFits checks whether serializing recs via serialize would fit in a
// remaining space, without mutating a: it serializes into a scratch area
// of the same remaining capacity.
func trialFits[R any](a *asm.Area, recs []R, serialize func(*asm.Area, []R) (bool, error)) (bool, error) {
	scratch := asm.NewArea(make([]byte, a.Available()))
	return serialize(scratch, recs)
}
