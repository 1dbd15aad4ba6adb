package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/config"
	"github.com/dotX12/denyhosts-go/internal/domain"
)

func TestBuildFirewallBackend_SelectsByName(t *testing.T) {
	cfg := config.Default()

	for _, name := range []string{"ipset", "iptables", "pf", "pf_table_file"} {
		cfg.FirewallBackend = name
		cfg.PfTableFile = "/tmp/denyhosts-go-test-pftable"
		backend, err := buildFirewallBackend(zerolog.Nop(), cfg)
		require.NoError(t, err, name)
		require.NotNil(t, backend, name)
	}
}

func TestBuildFirewallBackend_UnknownName_ReturnsError(t *testing.T) {
	cfg := config.Default()
	cfg.FirewallBackend = "nonsense"

	_, err := buildFirewallBackend(zerolog.Nop(), cfg)
	require.Error(t, err)
}

func TestHostsToStrings(t *testing.T) {
	hosts := []domain.Host{"192.0.2.10", "198.51.100.5"}
	require.Equal(t, []string{"192.0.2.10", "198.51.100.5"}, hostsToStrings(hosts))
}
