package vardis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestSerializeEmptyIsNoop(t *testing.T) {
	buf := make([]byte, 256)
	a := asm.NewArea(buf)
	wrote, err := SerializeSummaries(a, nil)
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, 0, a.Used())
}

func TestDisassembleMultipleContainers(t *testing.T) {
	buf := make([]byte, 256)
	a := asm.NewArea(buf)

	wrote, err := SerializeCreateVariables(a, []CreateVariableRecord{{
		Spec: wiretypes.VarSpec{
			VarId:       3,
			Producer:    wiretypes.NodeId{1, 2, 3, 4, 5, 6},
			RepCnt:      2,
			Description: "speed",
		},
		Value: wiretypes.VarValue{0x01, 0x02},
	}})
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = SerializeSummaries(a, []SummaryRecord{
		{VarId: 3, Seqno: 0},
		{VarId: 9, Seqno: 4},
	})
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = SerializeRequestVarCreates(a, []RequestVarCreateRecord{{VarId: 10}})
	require.NoError(t, err)
	require.True(t, wrote)

	r := asm.NewAreaForReading(a.Bytes(), a.Used())
	containers, err := Disassemble(r)
	require.NoError(t, err)
	require.Len(t, containers, 3)

	require.Equal(t, ContainerCreateVariables, containers[0].Type)
	require.Len(t, containers[0].CreateVariables, 1)
	require.Equal(t, wiretypes.VarId(3), containers[0].CreateVariables[0].Spec.VarId)
	require.Equal(t, wiretypes.String("speed"), containers[0].CreateVariables[0].Spec.Description)

	require.Equal(t, ContainerSummaries, containers[1].Type)
	require.Len(t, containers[1].Summaries, 2)
	require.Equal(t, wiretypes.VarId(9), containers[1].Summaries[1].VarId)

	require.Equal(t, ContainerRequestVarCreates, containers[2].Type)
	require.Equal(t, wiretypes.VarId(10), containers[2].RequestVarCreates[0].VarId)
}

func TestContainerTypeStringUnknown(t *testing.T) {
	require.Equal(t, "IC_UNKNOWN(99)", ContainerType(99).String())
	require.Equal(t, "UPDATES", ContainerUpdates.String())
}
