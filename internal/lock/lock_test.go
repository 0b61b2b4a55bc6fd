package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireExcludes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "locks", "run.lock")
	held, err := Acquire(path)
	require.NoError(t, err)

	_, ok, err := TryAcquire(path)
	require.NoError(t, err)
	assert.False(t, ok, "flock is per open file description")

	require.NoError(t, held.Release())
	require.NoError(t, held.Release())

	again, ok, err := TryAcquire(path)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, again.Release())

	var none *File
	assert.NoError(t, none.Release())
}
