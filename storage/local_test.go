package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndOpen(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Save("track.mp3", strings.NewReader("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	f, size, err := s.Open("track.mp3")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(11), size)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))
}

func TestOpenSupportsSeeking(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("track.mp3", strings.NewReader("0123456789"))
	require.NoError(t, err)

	f, _, err := s.Open("track.mp3")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Seek(5, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "56789", string(data))
}

func TestOpenMissingFile(t *testing.T) {
	s := newTestStore(t)

	_, _, err := s.Open("nope.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("track.mp3", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, s.Remove("track.mp3"))

	_, _, err = s.Open("track.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Removing a missing file is not an error.
	assert.NoError(t, s.Remove("track.mp3"))
}

func TestResolveRejectsEscapingKeys(t *testing.T) {
	s := newTestStore(t)

	for _, key := range []string{"", "..", "../etc/passwd", "a/b.mp3", `a\b.mp3`, "..mp3.."} {
		_, _, err := s.Open(key)
		assert.Error(t, err, "key %q", key)
		assert.NotErrorIs(t, err, os.ErrNotExist, "key %q", key)
	}
}

func TestOpenDirectoryIsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	_, _, err = s.Open("sub")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
