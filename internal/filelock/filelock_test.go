package filelock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockUnlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Lock(f))
	require.NoError(t, Unlock(f))
}

func TestLockRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f1, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	defer f1.Close()
	f2, err := os.OpenFile(path, os.O_RDWR, 0o600)
	require.NoError(t, err)
	defer f2.Close()

	require.NoError(t, Lock(f1))
	defer Unlock(f1)

	err = Lock(f2)
	require.ErrorIs(t, err, ErrLocked)
}
