package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SingleInstance(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")

	first := NewLock(dir)
	require.NoError(t, first.Acquire())
	assert.Equal(t, filepath.Join(dir, LockFileName), first.Path())

	second := NewLock(dir)
	assert.ErrorIs(t, second.Acquire(), ErrAlreadyRunning)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}
