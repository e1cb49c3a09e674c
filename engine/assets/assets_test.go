package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/kiln/engine/assets/loaders"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.vert.spv")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	am := NewAssetManager()
	require.NoError(t, am.Initialize(dir, false))
	defer am.Close()

	data, err := am.LoadBytes("triangle.vert.spv")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
	require.True(t, am.Cached("triangle.vert.spv"))

	// Without a watcher the cached copy wins.
	require.NoError(t, os.WriteFile(path, []byte{5, 6, 7, 8}, 0o644))
	data, err = am.LoadBytes(path)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestLoadBytesMissingFile(t *testing.T) {
	am := NewAssetManager()
	require.NoError(t, am.Initialize(t.TempDir(), false))

	_, err := am.LoadBytes("nope.spv")
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triangle.frag.spv")
	require.NoError(t, os.WriteFile(path, []byte("old!"), 0o644))

	am := NewAssetManager()
	require.NoError(t, am.Initialize(dir, true))
	defer am.Close()

	data, err := am.LoadBytes("triangle.frag.spv")
	require.NoError(t, err)
	require.Equal(t, "old!", string(data))

	require.NoError(t, os.WriteFile(path, []byte("new!"), 0o644))
	require.Eventually(t, func() bool {
		data, err := am.LoadBytes("triangle.frag.spv")
		return err == nil && string(data) == "new!"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestBytesToBytecode(t *testing.T) {
	words, err := loaders.BytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, []uint32{0x07230203, 1}, words)

	_, err = loaders.BytesToBytecode([]byte{1, 2, 3})
	require.ErrorIs(t, err, loaders.ErrBytecodeSize)
}
