package logger

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter_CreatesFileAndParents(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "nested", "rudder.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = os.Stat(logFile)
	assert.NoError(t, err)
}

func TestRotatingWriter_WriteAppends(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "rudder.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	for _, line := range []string{"first line\n", "second line\n"} {
		n, err := rw.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\n", string(content))
}

func TestRotatingWriter_RotatesAtSizeLimit(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "rudder.log")

	// Zero MB means any write exceeds the limit, so each write lands in a
	// fresh file.
	rw, err := NewRotatingWriter(logFile, 0, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = rw.Write([]byte("line one\n"))
	require.NoError(t, err)
	_, err = rw.Write([]byte("line two\n"))
	require.NoError(t, err)

	rotated, err := filepath.Glob(logFile + ".*")
	require.NoError(t, err)
	assert.NotEmpty(t, rotated, "second write must have rotated the first out")

	// The live file only holds the latest write.
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "line two\n", string(content))
}

func TestRotatingWriter_ConcurrentWriters(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "rudder.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := rw.Write([]byte("concurrent log line\n"))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "concurrent log line")
}

func TestRotatingWriter_CompressFile(t *testing.T) {
	dir := t.TempDir()
	rotated := filepath.Join(dir, "rudder.log.20250101-000000")
	require.NoError(t, os.WriteFile(rotated, []byte("rotated content"), 0644))

	rw := &RotatingWriter{compress: true}
	require.NoError(t, rw.compressFile(rotated))

	// The original is gone; the .gz round-trips to the same bytes.
	_, err := os.Stat(rotated)
	assert.True(t, os.IsNotExist(err))

	gz, err := os.Open(rotated + ".gz")
	require.NoError(t, err)
	defer gz.Close()

	reader, err := gzip.NewReader(gz)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "rotated content", string(data))
}

func TestRotatingWriter_CleanupDropsExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "rudder.log")

	expired := logFile + ".20200101-120000"
	require.NoError(t, os.WriteFile(expired, []byte("ancient"), 0644))
	old := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(expired, old, old))

	fresh := logFile + ".20990101-120000"
	require.NoError(t, os.WriteFile(fresh, []byte("recent"), 0644))

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	rw.cleanup()

	_, err = os.Stat(expired)
	assert.True(t, os.IsNotExist(err), "file past maxAge is removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "file inside maxAge survives")
}
