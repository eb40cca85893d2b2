package shm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAttachRoundTrip(t *testing.T) {
	dir := t.TempDir()
	name := "dcpd-test-region"

	creator, err := Create(dir, name, 4096)
	require.NoError(t, err)
	defer creator.Close()

	copy(creator.Data, []byte("hello shared memory"))

	attacher, err := Attach(dir, name, 4096)
	require.NoError(t, err)
	defer attacher.Close()

	require.Equal(t, "hello shared memory", string(attacher.Data[:len("hello shared memory")]))

	// writes by the attacher are visible through the creator's mapping too.
	copy(attacher.Data[100:], []byte("ack"))
	require.Equal(t, "ack", string(creator.Data[100:103]))
}

func TestCreateTwiceFails(t *testing.T) {
	dir := t.TempDir()
	name := "dcpd-test-dup"

	first, err := Create(dir, name, 4096)
	require.NoError(t, err)
	defer first.Close()

	_, err = Create(dir, name, 4096)
	require.ErrorIs(t, err, ErrExists)
}

func TestAttachMissingFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Attach(dir, "dcpd-test-missing", 4096)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreatorCloseUnlinksSegment(t *testing.T) {
	dir := t.TempDir()
	name := "dcpd-test-unlink"

	r, err := Create(dir, name, 4096)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = os.Stat(filepath.Join(dir, name))
	require.True(t, os.IsNotExist(err))
}

func TestAttacherCloseLeavesSegment(t *testing.T) {
	dir := t.TempDir()
	name := "dcpd-test-detach"

	creator, err := Create(dir, name, 4096)
	require.NoError(t, err)
	defer creator.Close()

	attacher, err := Attach(dir, name, 4096)
	require.NoError(t, err)
	require.NoError(t, attacher.Close())

	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)
}
