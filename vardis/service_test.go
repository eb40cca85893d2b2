package vardis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func newTestService() (*Service, wiretypes.NodeId) {
	own := wiretypes.NodeId{1, 1, 1, 1, 1, 1}
	svc := NewService(rtdb.New(), own, Config{
		MaxDescriptionLength: 255,
		MaxValueLength:       255,
		MaxRepetitions:       15,
	})
	return svc, own
}

func TestCreateThenDuplicateRejected(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 3, Description: "speed"}

	require.Equal(t, StatusOK, svc.Create(spec, wiretypes.VarValue{0x01}))
	require.Equal(t, StatusVariableExists, svc.Create(spec, wiretypes.VarValue{0x01}))
}

func TestCreateRejectsNonProducer(t *testing.T) {
	svc, _ := newTestService()
	other := wiretypes.NodeId{2, 2, 2, 2, 2, 2}
	spec := wiretypes.VarSpec{VarId: 1, Producer: other, RepCnt: 1, Description: "x"}
	require.Equal(t, StatusNotProducer, svc.Create(spec, wiretypes.VarValue{0x01}))
}

func TestCreateRejectsEmptyValue(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 1, Description: "x"}
	require.Equal(t, StatusEmptyValue, svc.Create(spec, nil))
}

func TestCreateRejectsIllegalRepCount(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 0, Description: "x"}
	require.Equal(t, StatusIllegalRepCount, svc.Create(spec, wiretypes.VarValue{0x01}))
}

func TestUpdateIncrementsSeqno(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 1, Description: "x"}
	require.Equal(t, StatusOK, svc.Create(spec, wiretypes.VarValue{0x01}))

	require.Equal(t, StatusOK, svc.Update(1, wiretypes.VarValue{0x02}))
	res, status := svc.Read(1, 10)
	require.Equal(t, StatusOK, status)
	require.Equal(t, wiretypes.VarSeqno(1), res.Seqno)
	require.Equal(t, wiretypes.VarValue{0x02}, res.Value)
}

func TestUpdateOnUnknownVariable(t *testing.T) {
	svc, _ := newTestService()
	require.Equal(t, StatusVariableDoesNotExist, svc.Update(9, wiretypes.VarValue{0x01}))
}

func TestDeleteThenUpdateRejected(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 2, Description: "x"}
	require.Equal(t, StatusOK, svc.Create(spec, wiretypes.VarValue{0x01}))
	require.Equal(t, StatusOK, svc.Delete(1))
	require.Equal(t, StatusAlreadyBeingDeleted, svc.Delete(1))
	require.Equal(t, StatusAlreadyBeingDeleted, svc.Update(1, wiretypes.VarValue{0x02}))

	_, status := svc.Read(1, 10)
	require.Equal(t, StatusOK, status) // entry still present until scrubbed/drained
}

func TestReadValueTooLong(t *testing.T) {
	svc, own := newTestService()
	spec := wiretypes.VarSpec{VarId: 1, Producer: own, RepCnt: 1, Description: "x"}
	require.Equal(t, StatusOK, svc.Create(spec, wiretypes.VarValue{0x01, 0x02, 0x03}))

	_, status := svc.Read(1, 1)
	require.Equal(t, StatusValueTooLong, status)
}
