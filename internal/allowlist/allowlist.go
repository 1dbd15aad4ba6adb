// Package allowlist implements C3: membership testing against a file
// of exact/CIDR/glob address patterns, and tracking of hosts that
// appear in both the deny file and the allow-list ("warned" hosts,
// spec.md §4.3).
package allowlist

import (
	"bufio"
	"net"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// WarnedTracker persists which hosts have already been surfaced in a
// warned report, so the same host is never reported twice.
type WarnedTracker interface {
	IsWarned(host domain.Host) (bool, error)
	MarkWarned(host domain.Host) error
}

type entry struct {
	exact string
	cidr  *net.IPNet
	glob  glob.Glob
}

// AllowList is read once per process from a file of address patterns.
type AllowList struct {
	logger  zerolog.Logger
	entries []entry
	warned  WarnedTracker
}

// Load reads path (one pattern per line, '#'-prefixed lines and blanks
// ignored) and compiles each entry as CIDR, glob (when it contains
// '*', '?' or '['), or else exact, tried in that order.
func Load(logger zerolog.Logger, path string, warned WarnedTracker) (*AllowList, error) {
	al := &AllowList{logger: logger, warned: warned}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return al, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		al.entries = append(al.entries, compileEntry(line))
	}
	return al, scanner.Err()
}

func compileEntry(pattern string) entry {
	if _, cidr, err := net.ParseCIDR(pattern); err == nil {
		return entry{cidr: cidr}
	}
	if strings.ContainsAny(pattern, "*?[") {
		if g, err := glob.Compile(pattern); err == nil {
			return entry{glob: g}
		}
	}
	return entry{exact: pattern}
}

// Contains reports whether host matches any configured pattern.
func (al *AllowList) Contains(host domain.Host) bool {
	for _, e := range al.entries {
		switch {
		case e.cidr != nil:
			if ip := net.ParseIP(string(host)); ip != nil && e.cidr.Contains(ip) {
				return true
			}
		case e.glob != nil:
			if e.glob.Match(string(host)) {
				return true
			}
		default:
			if e.exact == string(host) {
				return true
			}
		}
	}
	return false
}

// Warn records that host appeared in both the deny file and the
// allow-list, returning true the first time this is observed for host
// so the caller can surface it in the report exactly once.
func (al *AllowList) Warn(host domain.Host) (firstTime bool, err error) {
	already, err := al.warned.IsWarned(host)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := al.warned.MarkWarned(host); err != nil {
		return false, err
	}
	return true, nil
}
