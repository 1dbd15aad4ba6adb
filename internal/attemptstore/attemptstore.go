// Package attemptstore implements C2: the per-host counter accumulator
// and threshold evaluator from spec.md §4.2. It sits on top of
// internal/store for persistence and internal/domain for the counter
// and threshold types.
package attemptstore

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// Persistence is the subset of *store.Store this package depends on.
// Declared as an interface so tests can substitute an in-memory double.
type Persistence interface {
	UpsertAttempt(a *domain.LoginAttempt) error
	LoadAttempts() (map[domain.Host]*domain.LoginAttempt, error)
	PurgeAttempts(cutoff time.Time) (int64, error)
}

// Store is C2's in-memory accumulator, periodically flushed to
// Persistence.
type Store struct {
	logger     zerolog.Logger
	persist    Persistence
	thresholds domain.Thresholds
	restricted map[string]bool

	attempts map[domain.Host]*domain.LoginAttempt
	pending  map[domain.Host]bool // deny candidates not yet drained by DenyCandidates()
}

// New loads any previously persisted attempts and returns a ready
// Store.
func New(logger zerolog.Logger, persist Persistence, thresholds domain.Thresholds, restrictedUsers []string) (*Store, error) {
	loaded, err := persist.LoadAttempts()
	if err != nil {
		return nil, err
	}

	restricted := make(map[string]bool, len(restrictedUsers))
	for _, u := range restrictedUsers {
		restricted[u] = true
	}

	s := &Store{
		logger:     logger,
		persist:    persist,
		thresholds: thresholds,
		restricted: restricted,
		attempts:   loaded,
		pending:    make(map[domain.Host]bool),
	}
	for host, a := range loaded {
		if !a.Emitted && thresholds.Evaluate(a) {
			s.pending[host] = true
		}
	}
	return s, nil
}

func (s *Store) get(host domain.Host, now time.Time) *domain.LoginAttempt {
	a, ok := s.attempts[host]
	if !ok {
		a = &domain.LoginAttempt{Host: host, FirstSeen: now}
		s.attempts[host] = a
	}
	return a
}

// Record applies one classified line to host's counters per spec.md
// §4.2's policy. A success line with no prior failures is a no-op
// besides bookkeeping; a success line for a host with prior failures
// is tracked for the suspicious-activity report instead of clearing
// any counter.
func (s *Store) Record(host domain.Host, user string, success, invalid bool, now time.Time) {
	a := s.get(host, now)

	if success {
		if a.HasPriorFailures() {
			a.RecordSuspicious(user, now)
		}
		a.LastSeen = now
		return
	}

	restricted := s.restricted[user]
	a.RecordFailure(now, user, invalid, restricted)

	if !a.Emitted && s.thresholds.Evaluate(a) {
		s.pending[host] = true
	}
}

// DenyCandidates drains and returns every host whose counters have
// crossed a threshold since the last call, marking each Emitted so it
// is never returned again this process lifetime (spec.md §3: "emitted
// exactly once to the deny pipeline per process lifetime").
func (s *Store) DenyCandidates() []domain.Host {
	hosts := make([]domain.Host, 0, len(s.pending))
	for host := range s.pending {
		hosts = append(hosts, host)
		if a, ok := s.attempts[host]; ok {
			a.Emitted = true
		}
	}
	s.pending = make(map[domain.Host]bool)
	return hosts
}

// Suspicious returns every host with recorded suspicious-user activity
// that has not crossed a deny threshold, mapped to its attempted
// usernames.
func (s *Store) Suspicious() map[domain.Host][]string {
	out := make(map[domain.Host][]string)
	for host, a := range s.attempts {
		if a.Emitted || len(a.SuspiciousUsers) == 0 {
			continue
		}
		users := make([]string, len(a.SuspiciousUsers))
		for i, su := range a.SuspiciousUsers {
			users[i] = su.User
		}
		out[host] = users
	}
	return out
}

// Flush persists every in-memory attempt record.
func (s *Store) Flush() error {
	for _, a := range s.attempts {
		if err := s.persist.UpsertAttempt(a); err != nil {
			return err
		}
	}
	return nil
}

// Purge evicts in-memory and persisted records whose last_seen is
// older than age.
func (s *Store) Purge(age time.Duration) error {
	cutoff := time.Now().Add(-age)
	for host, a := range s.attempts {
		if a.LastSeen.Before(cutoff) {
			delete(s.attempts, host)
			delete(s.pending, host)
		}
	}
	n, err := s.persist.PurgeAttempts(cutoff)
	if err != nil {
		return err
	}
	s.logger.Debug().Int64("evicted", n).Msg("purged stale attempt records")
	return nil
}
