// Package denyfile implements C4: the append-only writer and parser
// for the OS access-control file (spec.md §4.4, §6).
package denyfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// bsdStyle is appended after the host on BSD-flavored hosts.deny lines
// (e.g. "ALL: 203.0.113.7 : deny"); denyDelimiter opens a timestamp
// comment and entryDelimiter separates its time from the payload when
// purging is enabled.
const (
	bsdStyle       = " : deny"
	denyDelimiter  = "#"
	entryDelimiter = ": "
)

// Writer reconciles deny decisions against the access-control file.
type Writer struct {
	logger         zerolog.Logger
	path           string
	blockService   string
	bsdStyle       bool
	writeTimestamp bool
}

// Options configures a Writer.
type Options struct {
	Path           string
	BlockService   string // empty disables the service-tag prefix
	BSDStyle       bool
	WriteTimestamp bool // true when PURGE_DENY is configured
}

func New(logger zerolog.Logger, opts Options) *Writer {
	return &Writer{
		logger:         logger,
		path:           opts.Path,
		blockService:   opts.BlockService,
		bsdStyle:       opts.BSDStyle,
		writeTimestamp: opts.WriteTimestamp,
	}
}

func (w *Writer) formatLine(host domain.Host) string {
	var payload string
	if w.blockService != "" {
		suffix := ""
		if w.bsdStyle {
			suffix = bsdStyle
		}
		payload = fmt.Sprintf("%s: %s%s", w.blockService, host, suffix)
	} else {
		payload = string(host)
	}

	// With timestamps on, a "# <time>: <payload>" comment line precedes
	// the entry line itself.
	if w.writeTimestamp {
		return fmt.Sprintf("%s %s%s%s\n%s", denyDelimiter, time.Now().Format(time.ANSIC), entryDelimiter, payload, payload)
	}
	return payload
}

// Apply appends every host in newHosts to the access-control file,
// returning the hosts actually written and ok=false if the file could
// not be opened for append (in which case the would-be additions are
// written to stdout instead, per spec.md §4.4 and the deny-file-open-failure
// scenario in spec.md §8).
func (w *Writer) Apply(newHosts []domain.Host) (added []domain.Host, ok bool) {
	if len(newHosts) == 0 {
		return nil, true
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	var out *bufio.Writer
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("cannot open deny file for append, degrading to stdout")
		out = bufio.NewWriter(os.Stdout)
		ok = false
	} else {
		defer f.Close()
		out = bufio.NewWriter(f)
		ok = true
	}

	for _, host := range newHosts {
		fmt.Fprintln(out, w.formatLine(host))
	}
	out.Flush()

	return newHosts, ok
}

// ParseDenied rebuilds the denied-set mirror by scanning the
// access-control file, matching get_denied_hosts in the original
// daemon. Lines are skipped if they start with '#' or are blank; an
// inline '#' comment is stripped before parsing the host (spec.md §9
// Open Question: preserve the intent — strip inline comments — rather
// than the original's literal, almost-certainly-buggy index check).
func ParseDenied(path string) ([]domain.Host, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening deny file %s: %w", path, err)
	}
	defer f.Close()

	var hosts []domain.Host
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		host := extractHost(line)
		if host == "" {
			continue
		}
		parsed, err := domain.ParseHost(host)
		if err != nil {
			continue
		}
		hosts = append(hosts, parsed)
	}
	return hosts, scanner.Err()
}

// extractHost pulls the bare address out of a deny-file line, which
// may be a raw host or "<service>: <host>[ : deny]". A bare IPv6
// address contains colons of its own, so the line is tried as a whole
// host first; only once that fails is a "<service>: " prefix stripped,
// and only on the colon-space separator so the address's own colons
// are left alone.
func extractHost(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if _, err := domain.ParseHost(line); err == nil {
		return line
	}
	if idx := strings.Index(line, entryDelimiter); idx >= 0 {
		line = line[idx+len(entryDelimiter):]
	}
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, " "); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}
