// Package firewall implements C5: the idempotent reconciler that adds
// and checks deny decisions against the kernel packet filter
// (spec.md §4.5). Backend is the capability set every concrete
// implementation (ipset+iptables, iptables-only, PF, PF-table-file)
// satisfies; the scheduler only ever talks to this interface.
package firewall

import "github.com/dotX12/denyhosts-go/internal/domain"

// Backend is the firewall capability set from spec.md §9 design note:
// {init, check(host), block(hosts)}.
type Backend interface {
	// Init prepares whatever backend state (set, chain, table) is
	// needed before Block can run. It is safe to call repeatedly —
	// each concrete backend makes it idempotent so hand-deleted state
	// self-heals, per spec.md §4.5.
	Init() error

	// Check reports whether host is already installed in the kernel
	// filter. An implementation unable to answer reports false, which
	// callers treat as "not yet blocked" and compensate for by calling
	// Block anyway — Block stays idempotent either way.
	Check(host domain.Host) bool

	// Block installs every host in hosts. Each host is a separate
	// subprocess invocation; errors are logged per host and never
	// abort the batch (spec.md §4.5 "Ordering & atomicity").
	Block(hosts []domain.Host) error
}
