package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriter(t *testing.T) {
	t.Run("writes append to the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.log")
		w, err := NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)

		_, err = w.Write([]byte("first\n"))
		require.NoError(t, err)
		_, err = w.Write([]byte("second\n"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "first\nsecond\n", string(data))
	})

	t.Run("reopening picks up the existing size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.log")
		require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

		w, err := NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)
		defer w.Close()
		assert.Equal(t, int64(9), w.written)
	})

	t.Run("rotates when the size limit is exceeded", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hub.log")
		w, err := NewRotatingWriter(path, 1, 0, false)
		require.NoError(t, err)
		// Force a tiny limit so one write triggers rotation of the next.
		w.maxSize = 10

		_, err = w.Write([]byte("0123456789"))
		require.NoError(t, err)
		_, err = w.Write([]byte("overflow"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "overflow", string(data))

		var rotated string
		for _, e := range entries {
			if e.Name() != "hub.log" {
				rotated = e.Name()
			}
		}
		require.True(t, strings.HasPrefix(rotated, "hub.log."))
		old, err := os.ReadFile(filepath.Join(dir, rotated))
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(old))
	})

	t.Run("prune removes rotated files past max age", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hub.log")
		stale := path + ".20200101-000000"
		require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))
		oldTime := time.Now().AddDate(0, 0, -30)
		require.NoError(t, os.Chtimes(stale, oldTime, oldTime))

		w, err := NewRotatingWriter(path, 1, 7, false)
		require.NoError(t, err)
		defer w.Close()

		_, err = os.Stat(stale)
		assert.True(t, os.IsNotExist(err))
	})
}
