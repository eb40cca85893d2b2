package vardis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func mustCreateEntry(t *testing.T, store *rtdb.Store, id wiretypes.VarId, repCnt uint8) {
	t.Helper()
	store.Lock()
	store.Set(id, rtdb.DBEntry{
		Exists:      true,
		Spec:        wiretypes.VarSpec{VarId: id, RepCnt: wiretypes.VarRepCnt(repCnt), Description: "x"},
		CountCreate: repCnt,
		Timestamp:   time.Now(),
		Value:       wiretypes.VarValue{0x01},
	})
	store.PushCreateQ(id)
	store.Unlock()
}

func TestFillPayloadPriorityOrder(t *testing.T) {
	store := rtdb.New()
	mustCreateEntry(t, store, 1, 2)

	store.Lock()
	store.Set(2, rtdb.DBEntry{Exists: true, Spec: wiretypes.VarSpec{VarId: 2}, Timestamp: time.Now()})
	store.PushSummaryQ(2)
	store.Unlock()

	buf := make([]byte, 4096)
	a := asm.NewArea(buf)

	store.Lock()
	n := FillPayload(a, store, 0)
	store.Unlock()

	require.GreaterOrEqual(t, n, 1)

	r := asm.NewAreaForReading(a.Bytes(), a.Used())
	containers, err := Disassemble(r)
	require.NoError(t, err)
	require.True(t, len(containers) >= 1)
	// CREATE_VARIABLES must come before SUMMARIES per the priority order.
	require.Equal(t, ContainerCreateVariables, containers[0].Type)
}

func TestFillPayloadDecrementsCountCreateAndRemovesWhenZero(t *testing.T) {
	store := rtdb.New()
	mustCreateEntry(t, store, 1, 1)

	buf := make([]byte, 4096)
	a := asm.NewArea(buf)

	store.Lock()
	FillPayload(a, store, 0)
	store.Unlock()

	store.Lock()
	require.Equal(t, 0, store.LenCreateQ())
	store.Unlock()
}

func TestFillPayloadNoWorkReturnsZero(t *testing.T) {
	store := rtdb.New()
	buf := make([]byte, 4096)
	a := asm.NewArea(buf)

	store.Lock()
	n := FillPayload(a, store, 0)
	store.Unlock()

	require.Equal(t, 0, n)
	require.Equal(t, 0, a.Used())
}

func TestFillPayloadOverflowKeepsRemainder(t *testing.T) {
	store := rtdb.New()
	for i := 0; i < 10; i++ {
		mustCreateEntry(t, store, wiretypes.VarId(i), 1)
	}

	// A tiny area can only hold a couple of CreateVariableRecords.
	buf := make([]byte, 20)
	a := asm.NewArea(buf)

	store.Lock()
	FillPayload(a, store, 0)
	remaining := store.LenCreateQ()
	store.Unlock()

	require.Greater(t, remaining, 0, "overflowed variables must stay queued for a later beacon")
}
