package firewall

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// IPSetBackend is the set-based reconciler from spec.md §4.5: a named
// ipset of kind hash:ip, matched by a single INPUT-chain rule that
// jumps to DROP. Initialization is retried on every Block call so
// hand-deleted state self-heals.
type IPSetBackend struct {
	logger    zerolog.Logger
	run       *commandRunner
	ipset     *ipsetRunner
	iptables  *iptablesRunner
	chainName string
	setName   string
	blockPort int

	initialized bool
	blocked     map[domain.Host]struct{}
}

// NewIPSetBackend constructs a backend targeting setName, linking a
// chain named chainName into INPUT (or ufw-before-input). blockPort, if
// non-zero, scopes the DROP rule to that destination port. ipsetBin and
// iptablesBin are the configured IPSET_COMMAND/IPTABLES binary names.
func NewIPSetBackend(logger zerolog.Logger, setName, chainName string, blockPort int, ipsetBin, iptablesBin string) *IPSetBackend {
	run := newCommandRunner(logger)
	return &IPSetBackend{
		logger:    logger,
		run:       run,
		ipset:     newIpsetRunner(run, ipsetBin),
		iptables:  newIptablesRunner(run, iptablesBin),
		chainName: chainName,
		setName:   setName,
		blockPort: blockPort,
		blocked:   make(map[domain.Host]struct{}),
	}
}

func (b *IPSetBackend) Init() error {
	if !b.ipset.Exists(b.setName) {
		b.logger.Info().Str("set", b.setName).Msg("creating ipset")
		if err := b.ipset.CreateHashIP(b.setName); err != nil {
			return fmt.Errorf("creating ipset %s: %w", b.setName, err)
		}
	}

	if !b.iptables.ChainExists(IPv4, TableFilter, b.chainName) {
		if err := b.iptables.CreateChain(IPv4, TableFilter, b.chainName); err != nil {
			return fmt.Errorf("creating chain %s: %w", b.chainName, err)
		}
	}

	matchRule := b.matchRule()
	if !b.iptables.RuleExists(IPv4, TableFilter, b.chainName, matchRule) {
		if err := b.iptables.AppendRule(IPv4, TableFilter, b.chainName, matchRule); err != nil {
			return fmt.Errorf("appending match rule to %s: %w", b.chainName, err)
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

func (b *IPSetBackend) matchRule() []string {
	rb := NewRuleBuilder()
	if b.blockPort > 0 {
		rb.Protocol("tcp").DestinationPort(strconv.Itoa(b.blockPort))
	}
	rb.MatchSet(b.setName, "src").Jump(TargetDrop)
	return rb.Build()
}

// Check queries set membership. Any error is treated as "not blocked"
// (fail-open to the decision layer, since the deny file still
// protects), matching spec.md §4.5.
func (b *IPSetBackend) Check(host domain.Host) bool {
	ok, err := b.ipset.Test(b.setName, string(host))
	if err != nil {
		b.logger.Warn().Err(err).Str("host", string(host)).Msg("ipset check failed")
		return false
	}
	return ok
}

// Block re-runs Init (idempotent) so hand-deleted set, chain or rule
// state is recreated, then adds every host to the set with -exist
// semantics.
func (b *IPSetBackend) Block(hosts []domain.Host) error {
	if err := b.Init(); err != nil {
		return err
	}
	for _, host := range hosts {
		if err := b.ipset.Add(b.setName, string(host)); err != nil {
			b.logger.Error().Err(err).Str("host", string(host)).Msg("ipset add failed")
			continue
		}
		b.blocked[host] = struct{}{}
	}
	return nil
}
