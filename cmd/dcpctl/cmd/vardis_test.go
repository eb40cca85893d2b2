package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestParseVarId(t *testing.T) {
	id, err := parseVarId("42")
	require.NoError(t, err)
	require.Equal(t, wiretypes.VarId(42), id)

	_, err = parseVarId("not-a-number")
	require.Error(t, err)

	_, err = parseVarId("256")
	require.Error(t, err)
}
