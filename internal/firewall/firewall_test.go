package firewall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

func TestRecordingBackend_BlockAppendsAndMarksChecked(t *testing.T) {
	b := NewRecordingBackend()

	require.NoError(t, b.Init())
	require.Equal(t, 1, b.InitCalls)

	require.False(t, b.Check("192.0.2.10"))
	require.NoError(t, b.Block([]domain.Host{"192.0.2.10", "198.51.100.5"}))
	require.True(t, b.Check("192.0.2.10"))
	require.Equal(t, []domain.Host{"192.0.2.10", "198.51.100.5"}, b.Blocked)
}

func TestPFTableFileBackend_Block_PersistsToFileAndDelegates(t *testing.T) {
	inner := NewRecordingBackend()
	path := filepath.Join(t.TempDir(), "pf_table.txt")
	b := NewPFTableFileBackend(zerolog.Nop(), inner, path)

	require.NoError(t, b.Block([]domain.Host{"203.0.113.7"}))
	require.Equal(t, []domain.Host{"203.0.113.7"}, inner.Blocked)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "203.0.113.7")
}

func TestRuleBuilder_BuildsExpectedSpec(t *testing.T) {
	spec := NewRuleBuilder().Protocol("tcp").DestinationPort("2222").MatchSet("denyhosts", "src").Jump(TargetDrop).Build()
	require.Equal(t, []string{"-p", "tcp", "--dport", "2222", "-m", "set", "--match-set", "denyhosts", "src", "-j", "DROP"}, spec)
}
