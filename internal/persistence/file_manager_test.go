package persistence

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsd/internal/store"
	"gsd/internal/structures"
	"gsd/internal/testutil"
)

func newTestFileManager(t *testing.T) *FileManager {
	t.Helper()
	compressor, err := NewZstdCompressor(&structures.Config{})
	require.NoError(t, err)
	return NewFileManager(compressor, &testutil.MockLogger{}, &testutil.MockMetrics{})
}

func TestFileManager_SaveLoadRoundTrip(t *testing.T) {
	fm := newTestFileManager(t)
	path := filepath.Join(t.TempDir(), "default.db.zst")

	src := store.NewMemStore()
	require.NoError(t, src.Update(func(tx store.Tx) {
		tx.Set("k", "v")
		tx.ZAdd("z", 1, "a")
		tx.ZAdd("z", 2, "b")
		tx.HSet("h", "f", "hv")
		tx.LPush("l", "item")
	}))

	require.NoError(t, fm.SaveToFile(path, src))

	dst := store.NewMemStore()
	require.NoError(t, fm.LoadFromFile(path, dst))

	v, found, err := dst.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", v)

	members, err := dst.ZRangeByScore("z", math.Inf(-1), math.Inf(1), false)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "a", members[0].Value)
	assert.Equal(t, "b", members[1].Value)

	hv, found, err := dst.HGet("h", "f")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hv", hv)

	items, err := dst.LRange("l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"item"}, items)
}

func TestFileManager_LoadMissingFileStartsEmpty(t *testing.T) {
	fm := newTestFileManager(t)

	st := store.NewMemStore()
	require.NoError(t, fm.LoadFromFile(filepath.Join(t.TempDir(), "absent.db.zst"), st))

	_, found, err := st.Get("k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileManager_SaveLeavesNoTempFileBehind(t *testing.T) {
	fm := newTestFileManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "default.db.zst")

	require.NoError(t, fm.SaveToFile(path, store.NewMemStore()))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_CompressionFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	fm := NewFileManager(&testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, boom },
	}, &testutil.MockLogger{}, &testutil.MockMetrics{})

	err := fm.SaveToFile(filepath.Join(t.TempDir(), "default.db.zst"), store.NewMemStore())
	assert.ErrorIs(t, err, boom)
}

func TestZstdCompressor_RoundTrip(t *testing.T) {
	compressor, err := NewZstdCompressor(&structures.Config{})
	require.NoError(t, err)

	payload := []byte(`{"kv":{"k":"v"}}`)
	compressed, err := compressor.Compress(payload)
	require.NoError(t, err)
	decompressed, err := compressor.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestZstdCompressor_ConfiguredLevel(t *testing.T) {
	conf := &structures.Config{}
	conf.Storage.CompressionLevel = 19

	compressor, err := NewZstdCompressor(conf)
	require.NoError(t, err)

	payload := []byte(`{"kv":{"k":"v"}}`)
	compressed, err := compressor.Compress(payload)
	require.NoError(t, err)
	decompressed, err := compressor.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, decompressed)
}

func TestZstdCompressor_InvalidLevel(t *testing.T) {
	conf := &structures.Config{}
	conf.Storage.CompressionLevel = 99

	_, err := NewZstdCompressor(conf)
	assert.Error(t, err)
}
