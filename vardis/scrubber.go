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
	"time"

	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// ScrubBatchSize bounds how many VarIds are inspected per lock acquisition,
// per spec.md §4.13.
const ScrubBatchSize = 50

// Scrub implements one pass of spec.md §4.13: every known VarId is checked,
// in batches of ScrubBatchSize with the store lock released between
// batches, and any entry whose last update is older than its estimated
// timeout is marked toBeDeleted, evicted from every queue but deleteQ, and
// given a fresh countDelete so the transmitter will announce its removal.
// It returns the VarIds newly marked toBeDeleted by this pass.
func Scrub(store *rtdb.Store, est *rtdb.ScrubTimeoutEstimator, now time.Time) []wiretypes.VarId {
	var scrubbed []wiretypes.VarId

	for base := 0; base < rtdb.NumSlots; base += ScrubBatchSize {
		end := base + ScrubBatchSize
		if end > rtdb.NumSlots {
			end = rtdb.NumSlots
		}

		store.Lock()
		for i := base; i < end; i++ {
			id := wiretypes.VarId(i)
			e, exists := store.Lookup(id)
			if !exists || e.ToBeDeleted {
				continue
			}
			timeout := est.Timeout(id)
			if now.Sub(e.Timestamp) <= timeout {
				continue
			}

			e.ToBeDeleted = true
			e.CountDelete = uint8(e.Spec.RepCnt)
			e.CountCreate = 0
			e.CountUpdate = 0
			store.Set(id, e)

			store.RemoveFromCreateQ(id)
			store.RemoveFromUpdateQ(id)
			store.RemoveFromSummaryQ(id)
			store.RemoveFromReqUpdateQ(id)
			store.RemoveFromReqCreateQ(id)
			store.PushDeleteQ(id)

			est.Forget(id)
			scrubbed = append(scrubbed, id)
		}
		store.Unlock()
	}

	return scrubbed
}
