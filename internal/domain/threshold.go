package domain

// Thresholds holds the four independently-evaluated deny thresholds
// from spec.md §3. A threshold <= 0 means "disabled" (never trips).
type Thresholds struct {
	Invalid    int
	Valid      int
	Root       int
	Restricted int
}

func crossed(count, limit int) bool {
	return limit > 0 && count >= limit
}

// Evaluate reports whether a's counters cross any applicable threshold.
// The host is flagged when any threshold is crossed (spec.md §3); the
// generic invalid/valid counter and the root/restricted counters are
// all maintained independently by LoginAttempt.RecordFailure, so this
// is a pure comparison with no side effects.
func (t Thresholds) Evaluate(a *LoginAttempt) bool {
	if crossed(a.FailuresInvalidUser, t.Invalid) {
		return true
	}
	if crossed(a.FailuresValidUser, t.Valid) {
		return true
	}
	if crossed(a.FailuresRoot, t.Root) {
		return true
	}
	if crossed(a.FailuresRestricted, t.Restricted) {
		return true
	}
	return false
}
