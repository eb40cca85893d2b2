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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func twoUpdateContainers() []DisassembledContainer {
	return []DisassembledContainer{
		{Type: ContainerUpdates, Updates: []UpdateRecord{{VarId: 5, Seqno: 3, Value: wiretypes.VarValue{1}}}},
		{Type: ContainerUpdates, Updates: []UpdateRecord{{VarId: 6, Seqno: 3, Value: wiretypes.VarValue{2}}}},
	}
}

func seedTwoVariables(store *rtdb.Store) {
	store.Lock()
	store.Set(5, rtdb.DBEntry{Exists: true, Spec: wiretypes.VarSpec{Producer: wiretypes.NodeId{9}, RepCnt: 1}, Seqno: 1})
	store.Set(6, rtdb.DBEntry{Exists: true, Spec: wiretypes.VarSpec{Producer: wiretypes.NodeId{9}, RepCnt: 1}, Seqno: 1})
	store.Unlock()
}

// TestApplyPayloadPerContainerLocking exercises the
// LockingIndividualContainers=true path, where ApplyContainer re-acquires
// the store lock for every container.
func TestApplyPayloadPerContainerLocking(t *testing.T) {
	store := rtdb.New()
	seedTwoVariables(store)

	d := &Daemon{cfg: DaemonConfig{LockingIndividualContainers: true}, store: store}
	for _, c := range twoUpdateContainers() {
		ApplyContainer(d.store, wiretypes.NodeId{}, c)
	}

	store.Lock()
	defer store.Unlock()
	e5, _ := store.Lookup(5)
	e6, _ := store.Lookup(6)
	require.EqualValues(t, 3, e5.Seqno)
	require.EqualValues(t, 3, e6.Seqno)
}

// TestApplyPayloadWholePayloadLocking exercises the
// LockingIndividualContainers=false path, where Daemon.applyPayload holds
// the store lock across every container in the payload instead of
// re-acquiring it per container.
func TestApplyPayloadWholePayloadLocking(t *testing.T) {
	store := rtdb.New()
	seedTwoVariables(store)

	d := &Daemon{cfg: DaemonConfig{LockingIndividualContainers: false}, store: store}
	d.store.Lock()
	for _, c := range twoUpdateContainers() {
		applyContainerLocked(d.store, wiretypes.NodeId{}, c)
	}
	d.store.Unlock()

	store.Lock()
	defer store.Unlock()
	e5, _ := store.Lookup(5)
	e6, _ := store.Lookup(6)
	require.EqualValues(t, 3, e5.Seqno)
	require.EqualValues(t, 3, e6.Seqno)
}
