package dcpconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dcpd.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadBPSectionOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[bp]
interface_name = wlan1
avgBeaconPeriodMS = 500
`)
	cfg := DefaultBPConfig()
	require.NoError(t, LoadSection(path, "bp", &cfg))

	require.Equal(t, "wlan1", cfg.InterfaceName)
	require.Equal(t, 500, cfg.AvgBeaconPeriodMS)
	require.Equal(t, 0.1, cfg.JitterFactor, "keys absent from the file keep their default")
}

func TestLoadMissingSectionKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[srp]
generationPeriodMS = 2000
`)
	cfg := DefaultBPConfig()
	require.NoError(t, LoadSection(path, "bp", &cfg))
	require.Equal(t, DefaultBPConfig(), cfg)
}

func TestBPConfigValidate(t *testing.T) {
	cfg := DefaultBPConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.InterfaceMTUSize = 10
	require.Error(t, bad.Validate())
}

func TestVardisConfigValidate(t *testing.T) {
	cfg := DefaultVardisConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MaxRepetitions = 20
	require.Error(t, bad.Validate())
}

func TestLoadSRPSection(t *testing.T) {
	path := writeConfig(t, `
[srp]
generationPeriodMS = 2000
keepaliveTimeoutMS = 9000
`)
	cfg := DefaultSRPConfig()
	require.NoError(t, LoadSection(path, "srp", &cfg))
	require.Equal(t, 2000, cfg.GenerationPeriodMS)
	require.Equal(t, 9000, cfg.KeepaliveTimeoutMS)
}
