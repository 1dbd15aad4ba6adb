package logfollow

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

type memOffsetStore struct {
	offsets map[string]domain.FileOffset
}

func newMemOffsetStore() *memOffsetStore {
	return &memOffsetStore{offsets: make(map[string]domain.FileOffset)}
}

func (m *memOffsetStore) LoadOffset(path string) (domain.FileOffset, bool, error) {
	o, ok := m.offsets[path]
	return o, ok, nil
}

func (m *memOffsetStore) SaveOffset(o domain.FileOffset) error {
	m.offsets[o.Path] = o
	return nil
}

func TestTracker_Poll_ReadsNewData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	store := newMemOffsetStore()
	tr, err := New(zerolog.Nop(), store, path)
	require.NoError(t, err)

	tick, err := tr.Poll()
	require.NoError(t, err)
	require.True(t, tick.Changed)
	require.Equal(t, []string{"line one", "line two"}, tick.Lines)

	tick, err = tr.Poll()
	require.NoError(t, err)
	require.False(t, tick.Changed)
}

func TestTracker_Poll_TruncationResetsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n"), 0o644))

	store := newMemOffsetStore()
	tr, err := New(zerolog.Nop(), store, path)
	require.NoError(t, err)

	_, err = tr.Poll()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("short\n"), 0o644))
	tick, err := tr.Poll()
	require.NoError(t, err)
	require.False(t, tick.Changed)

	tick, err = tr.Poll()
	require.NoError(t, err)
	require.True(t, tick.Changed)
	require.Equal(t, []string{"short"}, tick.Lines)
}

func TestTracker_Poll_MissingFile_DoesNotError(t *testing.T) {
	store := newMemOffsetStore()
	tr, err := New(zerolog.Nop(), store, filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)

	tick, err := tr.Poll()
	require.NoError(t, err)
	require.False(t, tick.Changed)
}

func TestTracker_Poll_DecompressesGzipSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	store := newMemOffsetStore()
	tr, err := New(zerolog.Nop(), store, path)
	require.NoError(t, err)

	tick, err := tr.Poll()
	require.NoError(t, err)
	require.True(t, tick.Changed)
	require.Equal(t, []string{"line one", "line two"}, tick.Lines)

	tick, err = tr.Poll()
	require.NoError(t, err)
	require.False(t, tick.Changed)
}

func TestReadArchived_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.log")
	require.NoError(t, os.WriteFile(path, []byte("x\ny\n"), 0o644))

	lines, err := ReadArchived(path)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, lines)
}
