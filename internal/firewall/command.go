package firewall

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// commandRunner centralizes subprocess execution for firewall backends.
// Every backend invocation is a separate process: there is no rollback
// across a batch, and a non-zero exit is reported to the caller instead
// of aborting the whole operation.
type commandRunner struct {
	logger zerolog.Logger
}

func newCommandRunner(logger zerolog.Logger) *commandRunner {
	return &commandRunner{logger: logger}
}

// Run executes a command and returns an error if it fails.
func (r *commandRunner) Run(name string, args ...string) error {
	r.logger.Debug().Str("command", name).Strs("args", args).Msg("executing command")

	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.Error().
			Err(err).
			Str("command", name).
			Strs("args", args).
			Str("stderr", stderr.String()).
			Msg("command failed")
		return fmt.Errorf("command '%s %s' failed: %w: %s", name, strings.Join(args, " "), err, stderr.String())
	}
	return nil
}

// RunOutput executes a command and returns its combined output.
func (r *commandRunner) RunOutput(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("command '%s %s' failed: %w: %s", name, strings.Join(args, " "), err, string(output))
	}
	return string(output), nil
}

// RunQuiet executes a command without logging, for existence/membership checks
// whose non-zero exit is an expected outcome rather than a failure.
func (r *commandRunner) RunQuiet(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Run()
}

// RunOutputQuiet executes a command and returns its output without logging errors.
func (r *commandRunner) RunOutputQuiet(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// RunShell runs a shell command, used for redirections ipset/iptables-save need.
func (r *commandRunner) RunShell(command string) error {
	return r.Run("sh", "-c", command)
}

// CommandExists reports whether name is available on PATH.
func (r *commandRunner) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
