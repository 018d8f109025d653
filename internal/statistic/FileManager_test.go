package statistic

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewind/internal/models"
	"rewind/internal/testutil"
)

func sampleRun() *models.AnalysisRun {
	run := models.NewAnalysisRun("42", 2023, "/export")
	run.Users["7"] = "alice"
	run.Bucket(models.BucketServers).Inc("Guild A", 3)
	run.Bucket(models.BucketFileTypes).Add("png", 1, 2048)
	run.Summary.TotalMessages = 3
	return run
}

func TestFileManager_SaveToFile_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.snapshot.zst")

	fm := NewFileManager(&testutil.MockCompressor{}, &testutil.MockLogger{})
	require.NoError(t, fm.SaveToFile(sampleRun(), path))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	// Temp file should not exist
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_RoundTripWithZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.snapshot.zst")

	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	fm := NewFileManager(comp, &testutil.MockLogger{})
	defer fm.Close()

	original := sampleRun()
	require.NoError(t, fm.SaveToFile(original, path))

	loaded, err := fm.LoadFromFile(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "42", loaded.UserID)
	assert.Equal(t, 2023, loaded.Year)
	assert.Equal(t, int64(3), loaded.Summary.TotalMessages)
	assert.Equal(t, "alice", loaded.Users["7"])

	entry, ok := loaded.Bucket(models.BucketServers).Get("Guild A")
	require.True(t, ok)
	assert.Equal(t, int64(3), entry.Count)
	entry, _ = loaded.Bucket(models.BucketFileTypes).Get("png")
	assert.Equal(t, int64(2048), entry.Bytes)
}

func TestFileManager_LoadFromFile_FileNotExist(t *testing.T) {
	fm := NewFileManager(&testutil.MockCompressor{}, &testutil.MockLogger{})
	run, err := fm.LoadFromFile("/nonexistent/path/run.snapshot.zst")
	assert.NoError(t, err) // not an error, just no data
	assert.Nil(t, run)
}

func TestFileManager_LoadFromFile_CorruptData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.snapshot.zst")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0644))

	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	fm := NewFileManager(comp, &testutil.MockLogger{})
	defer fm.Close()

	_, err = fm.LoadFromFile(path)
	assert.Error(t, err)
}

func TestFileManager_SaveToFile_CompressError(t *testing.T) {
	comp := &testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	fm := NewFileManager(comp, &testutil.MockLogger{})
	err := fm.SaveToFile(sampleRun(), filepath.Join(t.TempDir(), "x.zst"))
	assert.Error(t, err)
}

func TestZstdCompressor_RoundTrip(t *testing.T) {
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	defer comp.Close()

	payload := []byte(`{"buckets": {"servers": {"Guild A": 3}}}`)
	compressed, err := comp.Compress(payload)
	require.NoError(t, err)

	out, err := comp.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
