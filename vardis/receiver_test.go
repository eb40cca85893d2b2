package vardis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestSummaryForUnknownVariableRequestsCreate(t *testing.T) {
	store := rtdb.New()
	ApplyContainer(store, wiretypes.NodeId{}, DisassembledContainer{
		Type:      ContainerSummaries,
		Summaries: []SummaryRecord{{VarId: 5, Seqno: 3}},
	})
	store.Lock()
	defer store.Unlock()
	require.Equal(t, 1, store.LenReqCreateQ())
}

func TestSummaryStaleIsIgnored(t *testing.T) {
	store := rtdb.New()
	store.Lock()
	store.Set(5, rtdb.DBEntry{Exists: true, Seqno: 9})
	store.Unlock()

	ApplyContainer(store, wiretypes.NodeId{}, DisassembledContainer{
		Type:      ContainerSummaries,
		Summaries: []SummaryRecord{{VarId: 5, Seqno: 3}},
	})
	store.Lock()
	defer store.Unlock()
	require.Equal(t, 0, store.LenReqUpdateQ())
}

func TestSummaryFresherRequestsUpdate(t *testing.T) {
	store := rtdb.New()
	store.Lock()
	store.Set(5, rtdb.DBEntry{Exists: true, Seqno: 3})
	store.Unlock()

	ApplyContainer(store, wiretypes.NodeId{}, DisassembledContainer{
		Type:      ContainerSummaries,
		Summaries: []SummaryRecord{{VarId: 5, Seqno: 9}},
	})
	store.Lock()
	defer store.Unlock()
	require.Equal(t, 1, store.LenReqUpdateQ())
}

func TestCreateVariablesInstallsAndQueues(t *testing.T) {
	store := rtdb.New()
	producer := wiretypes.NodeId{9, 9, 9, 9, 9, 9}
	own := wiretypes.NodeId{1, 1, 1, 1, 1, 1}

	ApplyContainer(store, own, DisassembledContainer{
		Type: ContainerCreateVariables,
		CreateVariables: []CreateVariableRecord{{
			Spec:  wiretypes.VarSpec{VarId: 7, Producer: producer, RepCnt: 2},
			Value: wiretypes.VarValue{0x01},
		}},
	})

	store.Lock()
	defer store.Unlock()
	e, exists := store.Lookup(7)
	require.True(t, exists)
	require.Equal(t, producer, e.Spec.Producer)
	require.Equal(t, 1, store.LenCreateQ())
	require.Equal(t, 1, store.LenSummaryQ())
}

func TestDeleteVariablesEvictsFromOtherQueues(t *testing.T) {
	store := rtdb.New()
	own := wiretypes.NodeId{1, 1, 1, 1, 1, 1}

	store.Lock()
	store.Set(7, rtdb.DBEntry{Exists: true, Spec: wiretypes.VarSpec{VarId: 7, RepCnt: 3}})
	store.PushUpdateQ(7)
	store.Unlock()

	ApplyContainer(store, own, DisassembledContainer{
		Type:            ContainerDeleteVariables,
		DeleteVariables: []DeleteVariableRecord{{VarId: 7}},
	})

	store.Lock()
	defer store.Unlock()
	require.Equal(t, 0, store.LenUpdateQ())
	require.Equal(t, 1, store.LenDeleteQ())
	e, _ := store.Lookup(7)
	require.True(t, e.ToBeDeleted)
}

func TestUpdateFromNonProducerIgnored(t *testing.T) {
	store := rtdb.New()
	own := wiretypes.NodeId{1, 1, 1, 1, 1, 1}
	store.Lock()
	store.Set(7, rtdb.DBEntry{Exists: true, Spec: wiretypes.VarSpec{VarId: 7, Producer: own}, Seqno: 1})
	store.Unlock()

	ApplyContainer(store, own, DisassembledContainer{
		Type:    ContainerUpdates,
		Updates: []UpdateRecord{{VarId: 7, Seqno: 2, Value: wiretypes.VarValue{0x02}}},
	})

	store.Lock()
	defer store.Unlock()
	e, _ := store.Lookup(7)
	require.Equal(t, wiretypes.VarSeqno(1), e.Seqno, "self-produced variable must not be overwritten by a reflected update")
}
