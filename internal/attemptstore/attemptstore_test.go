package attemptstore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

type fakePersistence struct {
	saved map[domain.Host]*domain.LoginAttempt
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{saved: make(map[domain.Host]*domain.LoginAttempt)}
}

func (f *fakePersistence) UpsertAttempt(a *domain.LoginAttempt) error {
	cp := *a
	f.saved[a.Host] = &cp
	return nil
}

func (f *fakePersistence) LoadAttempts() (map[domain.Host]*domain.LoginAttempt, error) {
	out := make(map[domain.Host]*domain.LoginAttempt, len(f.saved))
	for h, a := range f.saved {
		cp := *a
		out[h] = &cp
	}
	return out, nil
}

func (f *fakePersistence) PurgeAttempts(cutoff time.Time) (int64, error) {
	var n int64
	for h, a := range f.saved {
		if a.LastSeen.Before(cutoff) {
			delete(f.saved, h)
			n++
		}
	}
	return n, nil
}

func TestStore_InvalidUserStorm_TripsThreshold(t *testing.T) {
	persist := newFakePersistence()
	thresholds := domain.Thresholds{Invalid: 3, Valid: 10, Root: 1, Restricted: 1}
	s, err := New(zerolog.Nop(), persist, thresholds, nil)
	require.NoError(t, err)

	host := domain.Host("192.0.2.10")
	now := time.Now()
	for i := 0; i < 2; i++ {
		s.Record(host, "bob", false, true, now)
		require.Empty(t, s.DenyCandidates(), "must not emit before the threshold is crossed")
	}
	s.Record(host, "bob", false, true, now)

	require.Equal(t, []domain.Host{host}, s.DenyCandidates())
	// Emitted exactly once per process lifetime.
	require.Empty(t, s.DenyCandidates())
}

func TestStore_RootThreshold_IndependentOfInvalid(t *testing.T) {
	persist := newFakePersistence()
	thresholds := domain.Thresholds{Invalid: 10, Valid: 10, Root: 1, Restricted: 1}
	s, err := New(zerolog.Nop(), persist, thresholds, nil)
	require.NoError(t, err)

	host := domain.Host("198.51.100.5")
	s.Record(host, "root", false, false, time.Now())

	require.Equal(t, []domain.Host{host}, s.DenyCandidates())
}

func TestStore_SuccessAfterFailures_IsSuspiciousNotCleared(t *testing.T) {
	persist := newFakePersistence()
	thresholds := domain.Thresholds{Invalid: 10, Valid: 10, Root: 10, Restricted: 10}
	s, err := New(zerolog.Nop(), persist, thresholds, nil)
	require.NoError(t, err)

	host := domain.Host("192.0.2.20")
	now := time.Now()
	s.Record(host, "carol", false, false, now)
	s.Record(host, "dave", true, false, now)

	susp := s.Suspicious()
	require.Contains(t, susp, host)
	require.Contains(t, susp[host], "dave")
	require.Empty(t, s.DenyCandidates())
}

func TestStore_FlushThenReload_PreservesCounters(t *testing.T) {
	persist := newFakePersistence()
	thresholds := domain.Thresholds{Invalid: 100, Valid: 100, Root: 100, Restricted: 100}
	s, err := New(zerolog.Nop(), persist, thresholds, nil)
	require.NoError(t, err)

	host := domain.Host("192.0.2.30")
	s.Record(host, "eve", false, true, time.Now())
	require.NoError(t, s.Flush())

	reloaded, err := New(zerolog.Nop(), persist, thresholds, nil)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.attempts[host].FailuresInvalidUser)
}
