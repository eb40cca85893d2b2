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

// ApplyContainer implements spec.md §4.12's per-container-type consumption
// rules against store, on behalf of ownNodeId, taking and releasing the
// store lock around its own work. Use this when
// DaemonConfig.LockingIndividualContainers is true, re-acquiring the lock
// for every container in a payload. When it is false the whole payload
// must be applied under one lock acquisition instead — see
// applyContainerLocked and Daemon.applyPayload.
func ApplyContainer(store *rtdb.Store, ownNodeId wiretypes.NodeId, dc DisassembledContainer) {
	store.Lock()
	defer store.Unlock()
	applyContainerLocked(store, ownNodeId, dc)
}

// applyContainerLocked is ApplyContainer's body without the lock
// acquisition, for callers that already hold store's lock across an
// entire payload's worth of containers.
func applyContainerLocked(store *rtdb.Store, ownNodeId wiretypes.NodeId, dc DisassembledContainer) {
	switch dc.Type {
	case ContainerSummaries:
		for _, r := range dc.Summaries {
			applySummary(store, r)
		}
	case ContainerUpdates:
		for _, r := range dc.Updates {
			applyUpdate(store, ownNodeId, r)
		}
	case ContainerRequestVarUpdates:
		for _, r := range dc.RequestVarUpdates {
			applyRequestVarUpdate(store, ownNodeId, r)
		}
	case ContainerRequestVarCreates:
		for _, r := range dc.RequestVarCreates {
			applyRequestVarCreate(store, r)
		}
	case ContainerCreateVariables:
		for _, r := range dc.CreateVariables {
			applyCreateVariable(store, r)
		}
	case ContainerDeleteVariables:
		for _, r := range dc.DeleteVariables {
			applyDeleteVariable(store, r)
		}
	}
}

func applySummary(store *rtdb.Store, r SummaryRecord) {
	e, exists := store.Lookup(r.VarId)
	if !exists {
		store.PushReqCreateQ(r.VarId)
		return
	}
	if wiretypes.MoreRecent(r.Seqno, e.Seqno) {
		store.PushReqUpdateQ(r.VarId)
	}
}

func applyUpdate(store *rtdb.Store, ownNodeId wiretypes.NodeId, r UpdateRecord) {
	e, exists := store.Lookup(r.VarId)
	if !exists {
		store.PushReqCreateQ(r.VarId)
		return
	}
	// An update can only be authoritative from its producer, and only if
	// it actually moves the sequence number forward.
	if e.Spec.Producer == ownNodeId || !wiretypes.MoreRecent(r.Seqno, e.Seqno) {
		return
	}
	e.Value = r.Value
	e.Seqno = r.Seqno
	e.Timestamp = time.Now()
	e.CountUpdate = uint8(e.Spec.RepCnt)
	store.Set(r.VarId, e)
	store.PushUpdateQ(r.VarId)
	store.PushSummaryQ(r.VarId)
	store.RemoveFromReqUpdateQ(r.VarId)
}

func applyRequestVarUpdate(store *rtdb.Store, ownNodeId wiretypes.NodeId, r RequestVarUpdateRecord) {
	e, exists := store.Lookup(r.VarId)
	if !exists || e.Spec.Producer != ownNodeId {
		return
	}
	if wiretypes.MoreRecent(e.Seqno, r.Seqno) {
		store.PushUpdateQ(r.VarId)
	}
}

func applyRequestVarCreate(store *rtdb.Store, r RequestVarCreateRecord) {
	e, exists := store.Lookup(r.VarId)
	if !exists {
		return
	}
	e.CountCreate = uint8(e.Spec.RepCnt)
	store.Set(r.VarId, e)
	store.PushCreateQ(r.VarId)
}

func applyCreateVariable(store *rtdb.Store, r CreateVariableRecord) {
	if _, exists := store.Lookup(r.Spec.VarId); exists {
		return
	}
	store.Set(r.Spec.VarId, rtdb.DBEntry{
		Exists:      true,
		Spec:        r.Spec,
		Value:       r.Value,
		Timestamp:   time.Now(),
		CountCreate: uint8(r.Spec.RepCnt),
	})
	store.PushCreateQ(r.Spec.VarId)
	store.PushSummaryQ(r.Spec.VarId)
}

func applyDeleteVariable(store *rtdb.Store, r DeleteVariableRecord) {
	e, exists := store.Lookup(r.VarId)
	if !exists || e.ToBeDeleted {
		return
	}
	e.ToBeDeleted = true
	e.Value = nil
	e.CountDelete = uint8(e.Spec.RepCnt)
	e.CountCreate = 0
	e.CountUpdate = 0
	store.Set(r.VarId, e)
	store.PushDeleteQ(r.VarId)
}
