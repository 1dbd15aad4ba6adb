package firewall

import "strings"

// ufwActive reports whether UFW is installed and enabled, adapted from
// the teacher's isUFWActive. When UFW owns INPUT, the set-based and
// rule-based backends link their chain into ufw-before-input instead
// of INPUT directly (spec.md SUPPLEMENTED FEATURES: "UFW safety check
// before blocking").
func ufwActive(run *commandRunner) bool {
	if !run.CommandExists("ufw") {
		return false
	}
	output, err := run.RunOutput("ufw", "status")
	if err != nil {
		return false
	}
	return strings.Contains(output, "Status: active")
}

func inputChainFor(run *commandRunner) string {
	if ufwActive(run) {
		return "ufw-before-input"
	}
	return string(ChainInput)
}
