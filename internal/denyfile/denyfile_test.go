package denyfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

func TestWriter_Apply_AppendsAndParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.deny")
	w := New(zerolog.Nop(), Options{Path: path, BlockService: "ALL"})

	added, ok := w.Apply([]domain.Host{"192.0.2.10", "198.51.100.5"})
	require.True(t, ok)
	require.Equal(t, []domain.Host{"192.0.2.10", "198.51.100.5"}, added)

	hosts, err := ParseDenied(path)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Host{"192.0.2.10", "198.51.100.5"}, hosts)
}

func TestWriter_Apply_EmptyInput_IsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.deny")
	w := New(zerolog.Nop(), Options{Path: path})

	added, ok := w.Apply(nil)
	require.True(t, ok)
	require.Nil(t, added)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestWriter_Apply_OpenFailure_DegradesToStdout(t *testing.T) {
	dir := t.TempDir()
	// A directory path can never be opened as a regular file for append.
	w := New(zerolog.Nop(), Options{Path: dir})

	added, ok := w.Apply([]domain.Host{"192.0.2.10"})
	require.False(t, ok)
	require.Equal(t, []domain.Host{"192.0.2.10"}, added)
}

func TestParseDenied_StripsInlineComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.deny")
	require.NoError(t, os.WriteFile(path, []byte("192.0.2.10 # blocked for brute force\nALL: 198.51.100.5\n"), 0o644))

	hosts, err := ParseDenied(path)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Host{"192.0.2.10", "198.51.100.5"}, hosts)
}

func TestParseDenied_BareIPv6HostRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.deny")
	require.NoError(t, os.WriteFile(path, []byte("2001:db8::1\nALL: 2001:db8::2\n"), 0o644))

	hosts, err := ParseDenied(path)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Host{"2001:db8::1", "2001:db8::2"}, hosts)
}

func TestParseDenied_MissingFile_ReturnsEmpty(t *testing.T) {
	hosts, err := ParseDenied(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, hosts)
}
