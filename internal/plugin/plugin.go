// Package plugin implements the PLUGIN_DENY external command hook
// (spec.md §6): when configured, its value is executed with the newly
// denied hosts passed as arguments; failures are logged and non-fatal.
package plugin

import (
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// Execute runs command with hosts appended as arguments. A non-zero
// exit or spawn failure is logged and returned, but never treated as
// fatal by the caller.
func Execute(logger zerolog.Logger, command string, hosts []domain.Host) error {
	if command == "" || len(hosts) == 0 {
		return nil
	}

	args := make([]string, len(hosts))
	for i, h := range hosts {
		args[i] = string(h)
	}

	fields := strings.Fields(command)
	name, baseArgs := fields[0], fields[1:]

	cmd := exec.Command(name, append(baseArgs, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Warn().Err(err).Str("plugin", command).Str("output", string(output)).Msg("PLUGIN_DENY hook failed")
		return err
	}
	return nil
}
