package plugin

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

func TestExecute_RunsCommandWithHostsAsArgs(t *testing.T) {
	err := Execute(zerolog.Nop(), "true", []domain.Host{"192.0.2.10", "198.51.100.5"})
	require.NoError(t, err)
}

func TestExecute_EmptyCommand_IsNoop(t *testing.T) {
	err := Execute(zerolog.Nop(), "", []domain.Host{"192.0.2.10"})
	require.NoError(t, err)
}

func TestExecute_NonexistentCommand_ReturnsError(t *testing.T) {
	err := Execute(zerolog.Nop(), "definitely-not-a-real-command-xyz", []domain.Host{"192.0.2.10"})
	require.Error(t, err)
}
