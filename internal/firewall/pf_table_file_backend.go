package firewall

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// PFTableFileBackend wraps another Backend (ordinarily a *PFBackend)
// and additionally appends every blocked host to a flat file, so the
// table can be reloaded across reboots via `pfctl -t <table> -T file
// <path>` at startup (spec.md §4.5 "PF table file").
type PFTableFileBackend struct {
	inner  Backend
	logger zerolog.Logger
	path   string
}

func NewPFTableFileBackend(logger zerolog.Logger, inner Backend, path string) *PFTableFileBackend {
	return &PFTableFileBackend{inner: inner, logger: logger, path: path}
}

func (b *PFTableFileBackend) Init() error { return b.inner.Init() }

func (b *PFTableFileBackend) Check(host domain.Host) bool { return b.inner.Check(host) }

// Block delegates to the inner backend, then persists hosts to the
// table file. Per spec.md §9 Open Question resolution, the loop
// iterates the function's own hosts parameter — the original's
// apparent reference to an outer new_hosts binding is not reproduced.
func (b *PFTableFileBackend) Block(hosts []domain.Host) error {
	if err := b.inner.Block(hosts); err != nil {
		return err
	}

	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening PF table file %s: %w", b.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, host := range hosts {
		fmt.Fprintln(w, host)
	}
	return w.Flush()
}
