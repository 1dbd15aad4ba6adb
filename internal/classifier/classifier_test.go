package classifier

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

func testOptions() Options {
	return Options{
		SSHDFormatRegex: `sshd\[\d+\]:\s*(?P<message>.*)`,
		FailedEntryRegexes: []string{
			`Failed \S+ for (?P<invalid>invalid user )?(?P<user>\S+) from (?P<host>\S+)`,
		},
		SuccessfulEntryRegex:    `Accepted \S+ for (?P<user>\S+) from (?P<host>\S+)`,
		DetectDovecot:           true,
		FailedDovecotEntryRegex: `dovecot.*\(auth failed.*rip=(?P<host>\S+?),`,
	}
}

func TestClassifier_Classify_InvalidUserFailure(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host sshd[1234]: Failed password for invalid user bob from 192.0.2.10 port 22`)

	require.Equal(t, domain.Failure, result.Kind)
	require.Equal(t, domain.Host("192.0.2.10"), result.Host)
	require.Equal(t, "bob", result.User)
	require.True(t, result.Invalid)
}

func TestClassifier_Classify_ValidUserFailure(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host sshd[1234]: Failed password for root from 198.51.100.5 port 22`)

	require.Equal(t, domain.Failure, result.Kind)
	require.Equal(t, domain.Host("198.51.100.5"), result.Host)
	require.Equal(t, "root", result.User)
	require.False(t, result.Invalid)
}

func TestClassifier_Classify_Success(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host sshd[1234]: Accepted publickey for alice from 203.0.113.7 port 22`)

	require.Equal(t, domain.Success, result.Kind)
	require.Equal(t, domain.Host("203.0.113.7"), result.Host)
	require.Equal(t, "alice", result.User)
}

func TestClassifier_Classify_NoMatch(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host kernel: unrelated message`)

	require.Equal(t, domain.NoMatch, result.Kind)
}

func TestClassifier_Classify_MalformedHostDropped(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host sshd[1234]: Failed password for root from not-an-ip port 22`)

	require.Equal(t, domain.NoMatch, result.Kind)
}

func TestClassifier_Classify_DovecotFailure(t *testing.T) {
	c, err := New(zerolog.Nop(), testOptions())
	require.NoError(t, err)

	result := c.Classify(`Jul 30 10:00:00 host dovecot: imap-login: Disconnected (auth failed, 2 attempts in 10 secs): user=<bob>, method=PLAIN, rip=192.0.2.55, lip=10.0.0.1`)

	require.Equal(t, domain.Failure, result.Kind)
	require.Equal(t, domain.Host("192.0.2.55"), result.Host)
}
