package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreCreatesDirectory(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "nested", "store")
	var s, err = NewStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.NotNil(t, s)
}

func TestLoadFileMissingReturnsNilNil(t *testing.T) {
	var s, err = NewStore(t.TempDir())
	require.NoError(t, err)

	var data, loadErr = s.LoadFile("station-name")
	require.NoError(t, loadErr)
	assert.Nil(t, data)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	var s, err = NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveFile("station-name", []byte("plc-17")))

	var data, loadErr = s.LoadFile("station-name")
	require.NoError(t, loadErr)
	assert.Equal(t, "plc-17", string(data))
}

func TestSaveFileOverwritesExisting(t *testing.T) {
	var s, err = NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveFile("ip-suite", []byte("first")))
	require.NoError(t, s.SaveFile("ip-suite", []byte("second")))

	var data, loadErr = s.LoadFile("ip-suite")
	require.NoError(t, loadErr)
	assert.Equal(t, "second", string(data))
}

func TestSaveFileIfModifiedSkipsIdenticalWrite(t *testing.T) {
	var s, err = NewStore(t.TempDir())
	require.NoError(t, err)

	var wrote, firstErr = s.SaveFileIfModified("logbook", []byte("snapshot-1"))
	require.NoError(t, firstErr)
	assert.True(t, wrote)

	wrote, err = s.SaveFileIfModified("logbook", []byte("snapshot-1"))
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = s.SaveFileIfModified("logbook", []byte("snapshot-2"))
	require.NoError(t, err)
	assert.True(t, wrote)
}

func TestClearFileIgnoresMissing(t *testing.T) {
	var s, err = NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.ClearFile("never-existed"))

	require.NoError(t, s.SaveFile("to-clear", []byte("x")))
	require.NoError(t, s.ClearFile("to-clear"))

	var data, loadErr = s.LoadFile("to-clear")
	require.NoError(t, loadErr)
	assert.Nil(t, data)
}

func TestSnapshotNameFormatsPattern(t *testing.T) {
	var stamp = time.Date(2026, time.July, 30, 14, 5, 0, 0, time.UTC)
	var name, err = SnapshotName("logbook-%Y%m%d-%H%M%S.bin", stamp)
	require.NoError(t, err)
	assert.Equal(t, "logbook-20260730-140500.bin", name)
}

func TestSnapshotNameRejectsBadPattern(t *testing.T) {
	var _, err = SnapshotName("%", time.Now())
	require.Error(t, err)
}
