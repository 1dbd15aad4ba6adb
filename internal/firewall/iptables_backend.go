package firewall

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// IPTablesBackend is the rule-based reconciler from spec.md §4.5: used
// when ipset is unavailable. Each blocked host becomes a standalone
// input-chain rule instead of a set member.
type IPTablesBackend struct {
	logger    zerolog.Logger
	run       *commandRunner
	iptables  *iptablesRunner
	chainName string
	blockPort int

	initialized bool
	blocked     map[domain.Host]struct{}
}

// NewIPTablesBackend constructs a backend using iptablesBin (the
// configured IPTABLES binary name) for every IPv4 rule.
func NewIPTablesBackend(logger zerolog.Logger, chainName string, blockPort int, iptablesBin string) *IPTablesBackend {
	run := newCommandRunner(logger)
	return &IPTablesBackend{
		logger:    logger,
		run:       run,
		iptables:  newIptablesRunner(run, iptablesBin),
		chainName: chainName,
		blockPort: blockPort,
		blocked:   make(map[domain.Host]struct{}),
	}
}

func (b *IPTablesBackend) Init() error {
	if !b.iptables.ChainExists(IPv4, TableFilter, b.chainName) {
		if err := b.iptables.CreateChain(IPv4, TableFilter, b.chainName); err != nil {
			return fmt.Errorf("creating chain %s: %w", b.chainName, err)
		}
	}

	input := inputChainFor(b.run)
	linkRule := NewRuleBuilder().JumpChain(b.chainName).Build()
	if !b.iptables.RuleExists(IPv4, TableFilter, input, linkRule) {
		if err := b.iptables.InsertRule(IPv4, TableFilter, input, 1, linkRule); err != nil {
			return fmt.Errorf("linking %s into %s: %w", b.chainName, input, err)
		}
	}

	b.initialized = true
	return nil
}

func (b *IPTablesBackend) hostRule(host domain.Host) []string {
	rb := NewRuleBuilder().Source(string(host))
	if b.blockPort > 0 {
		rb.Protocol("tcp").DestinationPort(strconv.Itoa(b.blockPort))
	}
	rb.Jump(TargetDrop)
	return rb.Build()
}

// Check uses -C to test whether host's standalone rule already exists.
func (b *IPTablesBackend) Check(host domain.Host) bool {
	return b.iptables.RuleExists(IPv4, TableFilter, b.chainName, b.hostRule(host))
}

// Block inserts a standalone DROP rule per host.
func (b *IPTablesBackend) Block(hosts []domain.Host) error {
	if !b.initialized {
		if err := b.Init(); err != nil {
			return err
		}
	}
	for _, host := range hosts {
		if b.Check(host) {
			b.blocked[host] = struct{}{}
			continue
		}
		if err := b.iptables.InsertRule(IPv4, TableFilter, b.chainName, 1, b.hostRule(host)); err != nil {
			b.logger.Error().Err(err).Str("host", string(host)).Msg("iptables insert failed")
			continue
		}
		b.blocked[host] = struct{}{}
	}
	return nil
}
