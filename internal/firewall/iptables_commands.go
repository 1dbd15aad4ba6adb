package firewall

import (
	"fmt"
)

// IPVersion selects iptables vs. ip6tables, adapted from the teacher's
// IptablesCommandService.
type IPVersion string

const (
	IPv4 IPVersion = "ipv4"
	IPv6 IPVersion = "ipv6"
)

// Table is an iptables table name.
type Table string

const TableFilter Table = "filter"

// Chain is a well-known iptables chain name.
type Chain string

const ChainInput Chain = "INPUT"

// Target is an iptables jump target.
type Target string

const (
	TargetDrop Target = "DROP"
	TargetLog  Target = "LOG"
)

// iptablesRunner wraps commandRunner with the chain/rule CRUD the
// teacher's IptablesCommandService exposed, trimmed to what the deny
// backends use. bin is the configured IPTABLES binary name, used for
// IPv4 rules; IPv6 has no separate config key and always runs
// "ip6tables".
type iptablesRunner struct {
	run *commandRunner
	bin string
}

func newIptablesRunner(run *commandRunner, bin string) *iptablesRunner {
	if bin == "" {
		bin = "iptables"
	}
	return &iptablesRunner{run: run, bin: bin}
}

func (r *iptablesRunner) command(version IPVersion) string {
	if version == IPv6 {
		return "ip6tables"
	}
	return r.bin
}

func (r *iptablesRunner) ChainExists(version IPVersion, table Table, chain string) bool {
	_, err := r.run.RunOutputQuiet(r.command(version), "-t", string(table), "-L", chain, "-n")
	return err == nil
}

func (r *iptablesRunner) CreateChain(version IPVersion, table Table, chain string) error {
	return r.run.Run(r.command(version), "-t", string(table), "-N", chain)
}

func (r *iptablesRunner) FlushChain(version IPVersion, table Table, chain string) error {
	return r.run.Run(r.command(version), "-t", string(table), "-F", chain)
}

func (r *iptablesRunner) RuleExists(version IPVersion, table Table, chain string, ruleSpec []string) bool {
	args := append([]string{"-t", string(table), "-C", chain}, ruleSpec...)
	return r.run.RunQuiet(r.command(version), args...) == nil
}

func (r *iptablesRunner) AppendRule(version IPVersion, table Table, chain string, ruleSpec []string) error {
	args := append([]string{"-t", string(table), "-A", chain}, ruleSpec...)
	return r.run.Run(r.command(version), args...)
}

func (r *iptablesRunner) InsertRule(version IPVersion, table Table, chain string, position int, ruleSpec []string) error {
	args := []string{"-t", string(table), "-I", chain}
	if position > 0 {
		args = append(args, fmt.Sprintf("%d", position))
	}
	args = append(args, ruleSpec...)
	return r.run.Run(r.command(version), args...)
}

func (r *iptablesRunner) DeleteRule(version IPVersion, table Table, chain string, ruleSpec []string) error {
	args := append([]string{"-t", string(table), "-D", chain}, ruleSpec...)
	return r.run.Run(r.command(version), args...)
}

func (r *iptablesRunner) LinkChainToInput(version IPVersion, chain string, position int) error {
	rule := NewRuleBuilder().JumpChain(chain).Build()
	return r.InsertRule(version, TableFilter, string(ChainInput), position, rule)
}

// RuleBuilder assembles an iptables rule specification, adapted from
// the teacher's fluent builder and trimmed to the match types the deny
// backends need.
type RuleBuilder struct {
	spec []string
}

func NewRuleBuilder() *RuleBuilder { return &RuleBuilder{} }

func (rb *RuleBuilder) Source(addr string) *RuleBuilder {
	rb.spec = append(rb.spec, "-s", addr)
	return rb
}

func (rb *RuleBuilder) DestinationPort(port string) *RuleBuilder {
	rb.spec = append(rb.spec, "--dport", port)
	return rb
}

func (rb *RuleBuilder) Protocol(proto string) *RuleBuilder {
	rb.spec = append(rb.spec, "-p", proto)
	return rb
}

func (rb *RuleBuilder) MatchSet(setName, flag string) *RuleBuilder {
	rb.spec = append(rb.spec, "-m", "set", "--match-set", setName, flag)
	return rb
}

func (rb *RuleBuilder) Jump(target Target) *RuleBuilder {
	rb.spec = append(rb.spec, "-j", string(target))
	return rb
}

func (rb *RuleBuilder) JumpChain(chain string) *RuleBuilder {
	rb.spec = append(rb.spec, "-j", chain)
	return rb
}

func (rb *RuleBuilder) Build() []string { return rb.spec }
