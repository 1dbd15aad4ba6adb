// Package classifier implements C1: matching one raw log line against
// an ordered regex set and extracting the {user, host, success,
// invalid} tuple spec.md §4.1 describes. The dispatch order is fixed:
// envelope first (numbered failed-entry regexes, then the success
// regex), Dovecot second when enabled, user-defined regexes last.
package classifier

import (
	"regexp"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// namedRegex pairs a compiled pattern with the index of its "host",
// "user" and "invalid" named groups, resolved once at construction so
// every match avoids a name→index lookup.
type namedRegex struct {
	re         *regexp.Regexp
	hostIdx    int
	userIdx    int
	invalidIdx int
}

func compileNamed(pattern string) (*namedRegex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	nr := &namedRegex{re: re, hostIdx: -1, userIdx: -1, invalidIdx: -1}
	for i, name := range re.SubexpNames() {
		switch name {
		case "host":
			nr.hostIdx = i
		case "user":
			nr.userIdx = i
		case "invalid":
			nr.invalidIdx = i
		}
	}
	return nr, nil
}

func (n *namedRegex) match(line string) (matched bool, host, user string, invalid bool) {
	m := n.re.FindStringSubmatch(line)
	if m == nil {
		return false, "", "", false
	}
	if n.hostIdx < 0 || n.hostIdx >= len(m) || m[n.hostIdx] == "" {
		return false, "", "", false
	}
	host = m[n.hostIdx]
	if n.userIdx >= 0 && n.userIdx < len(m) {
		user = m[n.userIdx]
	}
	// invalid is true only when the regex both declares the named group
	// "invalid" and captured non-empty text for it on this match, per
	// spec.md §4.1 ("invalid = 1 iff the match exposes a non-empty named
	// group invalid") — mirrors the original's truthy
	// rx_match.group("invalid") check on captured text.
	invalid = n.invalidIdx >= 0 && n.invalidIdx < len(m) && m[n.invalidIdx] != ""
	return true, host, user, invalid
}

// Classifier holds every compiled regex the pipeline dispatches
// against, in the order spec.md §4.1 requires.
type Classifier struct {
	logger zerolog.Logger

	envelope *namedRegex

	failedEntries []*namedRegex
	successEntry  *namedRegex

	dovecotEnabled bool
	dovecotEntry   *namedRegex

	userdefEntries []*namedRegex
}

// Options configures a Classifier. Regex strings come from
// internal/config; compiling them is this package's job so config
// stays a thin YAML struct.
type Options struct {
	SSHDFormatRegex         string
	FailedEntryRegexes      []string
	SuccessfulEntryRegex    string
	DetectDovecot           bool
	FailedDovecotEntryRegex string
	UserdefFailedEntryRegex []string
}

// New compiles every regex in opts. A compile failure is returned
// immediately; callers should treat it as a Configuration error.
func New(logger zerolog.Logger, opts Options) (*Classifier, error) {
	c := &Classifier{logger: logger, dovecotEnabled: opts.DetectDovecot}

	var err error
	if opts.SSHDFormatRegex != "" {
		if c.envelope, err = compileNamed(opts.SSHDFormatRegex); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.FailedEntryRegexes {
		nr, err := compileNamed(p)
		if err != nil {
			return nil, err
		}
		c.failedEntries = append(c.failedEntries, nr)
	}
	if opts.SuccessfulEntryRegex != "" {
		if c.successEntry, err = compileNamed(opts.SuccessfulEntryRegex); err != nil {
			return nil, err
		}
	}
	if opts.DetectDovecot && opts.FailedDovecotEntryRegex != "" {
		if c.dovecotEntry, err = compileNamed(opts.FailedDovecotEntryRegex); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.UserdefFailedEntryRegex {
		nr, err := compileNamed(p)
		if err != nil {
			return nil, err
		}
		c.userdefEntries = append(c.userdefEntries, nr)
	}
	return c, nil
}

// Classify applies the dispatch order from spec.md §4.1 to one raw
// line. A line that matches no pattern returns a NoMatch result. A
// match whose host fails address validation is dropped with a logged
// warning, matching C1's error-handling row.
func (c *Classifier) Classify(line string) domain.ClassifyResult {
	body := line
	inEnvelope := false

	if c.envelope != nil {
		if m := c.envelope.re.FindStringSubmatch(line); m != nil {
			if idx := messageIndex(c.envelope.re); idx >= 0 && idx < len(m) {
				body = m[idx]
				inEnvelope = true
			}
		}
	}

	if inEnvelope {
		for _, nr := range c.failedEntries {
			if ok, host, user, invalid := nr.match(body); ok {
				return c.buildFailure(host, user, invalid)
			}
		}
		if c.successEntry != nil {
			if ok, host, user, _ := c.successEntry.match(body); ok {
				return c.buildSuccess(host, user)
			}
		}
		return domain.ClassifyResult{Kind: domain.NoMatch}
	}

	if c.dovecotEnabled && c.dovecotEntry != nil {
		if ok, host, user, invalid := c.dovecotEntry.match(body); ok {
			return c.buildFailure(host, user, invalid)
		}
	}

	for _, nr := range c.userdefEntries {
		if ok, host, user, invalid := nr.match(body); ok {
			return c.buildFailure(host, user, invalid)
		}
	}

	return domain.ClassifyResult{Kind: domain.NoMatch}
}

func (c *Classifier) buildFailure(hostStr, user string, invalid bool) domain.ClassifyResult {
	host, err := domain.ParseHost(hostStr)
	if err != nil {
		c.logger.Warn().Str("host", hostStr).Msg("dropping line: malformed host address")
		return domain.ClassifyResult{Kind: domain.NoMatch}
	}
	return domain.ClassifyResult{Kind: domain.Failure, Host: host, User: user, Invalid: invalid}
}

func (c *Classifier) buildSuccess(hostStr, user string) domain.ClassifyResult {
	host, err := domain.ParseHost(hostStr)
	if err != nil {
		c.logger.Warn().Str("host", hostStr).Msg("dropping line: malformed host address")
		return domain.ClassifyResult{Kind: domain.NoMatch}
	}
	return domain.ClassifyResult{Kind: domain.Success, Host: host, User: user}
}

func messageIndex(re *regexp.Regexp) int {
	for i, name := range re.SubexpNames() {
		if name == "message" {
			return i
		}
	}
	return -1
}
