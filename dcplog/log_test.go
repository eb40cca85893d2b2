package dcplog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevelRejectsUnknown(t *testing.T) {
	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestParseLevelKnownValues(t *testing.T) {
	for _, s := range []string{"trace", "debug", "info", "warning", "error", "fatal"} {
		_, err := ParseLevel(s)
		require.NoError(t, err, s)
	}
}

func TestRotatingWriterRotatesOnOverflow(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "bp-daemon")

	w, err := NewRotatingWriter(prefix, 8)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("1234567")) // under threshold
	require.NoError(t, err)
	_, err = w.Write([]byte("89")) // pushes size to 9 > 8, rotates first
	require.NoError(t, err)

	rotatedContents, err := os.ReadFile(prefix + ".log.1")
	require.NoError(t, err)
	require.Equal(t, "1234567", string(rotatedContents))

	currentContents, err := os.ReadFile(prefix + ".log")
	require.NoError(t, err)
	require.Equal(t, "89", string(currentContents))
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, err := Setup(Config{SeverityLevel: "bogus"})
	require.Error(t, err)
}

func TestSetupToFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := Setup(Config{
		SeverityLevel:  "info",
		FilenamePrefix: filepath.Join(dir, "vardis-daemon"),
		RotationSizeMB: 1,
	})
	require.NoError(t, err)
	logger.Info("hello")

	_, err = os.Stat(filepath.Join(dir, "vardis-daemon.log"))
	require.NoError(t, err)
}
