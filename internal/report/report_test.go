package report

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_Flush_DeliversAndClears(t *testing.T) {
	var buf bytes.Buffer
	acc := New(zerolog.Nop(), NewConsoleSink(&buf))

	acc.AddSection("Added the following hosts to /etc/hosts.deny", []string{"192.0.2.10"})
	require.False(t, acc.Empty())

	require.NoError(t, acc.Flush())
	require.True(t, acc.Empty())
	require.Contains(t, buf.String(), "192.0.2.10")

	buf.Reset()
	require.NoError(t, acc.Flush())
	require.Empty(t, buf.String())
}
