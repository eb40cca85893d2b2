package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

func TestProtocolName(t *testing.T) {
	require.Equal(t, "vardis", protocolName(wiretypes.ProtocolIdVardis))
	require.Equal(t, "srp", protocolName(wiretypes.ProtocolIdSRP))
	require.Equal(t, "0x00ff", protocolName(wiretypes.BPProtocolId(0xff)))
}
