// Package store is the single collapsed persistent store backing the
// daemon's working directory (spec.md §9 design note: "a
// reimplementation may collapse [the per-category counter files] into
// a single store keyed by (category, host)"). It holds C2's attempt
// counters, C6's file offsets, C3's warned-hosts set, and C9's sync
// staging, all in one sqlite database under WORK_DIR.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dotX12/denyhosts-go/internal/domain"
)

// Store wraps a sqlite-backed *sql.DB with the daemon's schema.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite via modernc.org/sqlite: single writer, avoid lock contention

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	host TEXT PRIMARY KEY,
	failures_invalid_user INTEGER NOT NULL DEFAULT 0,
	failures_valid_user   INTEGER NOT NULL DEFAULT 0,
	failures_root         INTEGER NOT NULL DEFAULT 0,
	failures_restricted   INTEGER NOT NULL DEFAULT 0,
	first_seen            INTEGER NOT NULL,
	last_seen             INTEGER NOT NULL,
	emitted               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS suspicious_users (
	host TEXT NOT NULL,
	user TEXT NOT NULL,
	seen INTEGER NOT NULL,
	PRIMARY KEY (host, user)
);

CREATE TABLE IF NOT EXISTS offsets (
	path            TEXT PRIMARY KEY,
	inode           INTEGER NOT NULL,
	offset          INTEGER NOT NULL,
	first_line_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS warned_hosts (
	host TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sync_pending (
	host TEXT PRIMARY KEY,
	added_at INTEGER NOT NULL
);
`

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrating store schema: %w", err)
	}
	return nil
}

// UpsertAttempt persists a.
func (s *Store) UpsertAttempt(a *domain.LoginAttempt) error {
	_, err := s.db.Exec(`
		INSERT INTO attempts (host, failures_invalid_user, failures_valid_user, failures_root, failures_restricted, first_seen, last_seen, emitted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			failures_invalid_user = excluded.failures_invalid_user,
			failures_valid_user   = excluded.failures_valid_user,
			failures_root         = excluded.failures_root,
			failures_restricted   = excluded.failures_restricted,
			first_seen            = excluded.first_seen,
			last_seen             = excluded.last_seen,
			emitted               = excluded.emitted
	`, string(a.Host), a.FailuresInvalidUser, a.FailuresValidUser, a.FailuresRoot, a.FailuresRestricted,
		a.FirstSeen.Unix(), a.LastSeen.Unix(), boolToInt(a.Emitted))
	if err != nil {
		return fmt.Errorf("upserting attempt for %s: %w", a.Host, err)
	}

	for _, su := range a.SuspiciousUsers {
		if _, err := s.db.Exec(`
			INSERT INTO suspicious_users (host, user, seen) VALUES (?, ?, ?)
			ON CONFLICT(host, user) DO UPDATE SET seen = excluded.seen
		`, string(a.Host), su.User, su.Seen.Unix()); err != nil {
			return fmt.Errorf("upserting suspicious user for %s: %w", a.Host, err)
		}
	}
	return nil
}

// LoadAttempts returns every persisted attempt record, keyed by host.
func (s *Store) LoadAttempts() (map[domain.Host]*domain.LoginAttempt, error) {
	rows, err := s.db.Query(`SELECT host, failures_invalid_user, failures_valid_user, failures_root, failures_restricted, first_seen, last_seen, emitted FROM attempts`)
	if err != nil {
		return nil, fmt.Errorf("loading attempts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Host]*domain.LoginAttempt)
	for rows.Next() {
		var host string
		var firstSeen, lastSeen int64
		var emitted int
		a := &domain.LoginAttempt{}
		if err := rows.Scan(&host, &a.FailuresInvalidUser, &a.FailuresValidUser, &a.FailuresRoot, &a.FailuresRestricted, &firstSeen, &lastSeen, &emitted); err != nil {
			return nil, fmt.Errorf("scanning attempt row: %w", err)
		}
		a.Host = domain.Host(host)
		a.FirstSeen = time.Unix(firstSeen, 0)
		a.LastSeen = time.Unix(lastSeen, 0)
		a.Emitted = emitted != 0
		out[a.Host] = a
	}

	su, err := s.db.Query(`SELECT host, user, seen FROM suspicious_users`)
	if err != nil {
		return nil, fmt.Errorf("loading suspicious users: %w", err)
	}
	defer su.Close()
	for su.Next() {
		var host, user string
		var seen int64
		if err := su.Scan(&host, &user, &seen); err != nil {
			return nil, fmt.Errorf("scanning suspicious user row: %w", err)
		}
		if a, ok := out[domain.Host(host)]; ok {
			a.SuspiciousUsers = append(a.SuspiciousUsers, domain.SuspiciousEntry{User: user, Seen: time.Unix(seen, 0)})
		}
	}

	return out, rows.Err()
}

// PurgeAttempts deletes every attempt record whose last_seen is older
// than cutoff, returning how many rows were removed.
func (s *Store) PurgeAttempts(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM attempts WHERE last_seen < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging attempts: %w", err)
	}
	return res.RowsAffected()
}

// SaveOffset persists the follower's position for one log path.
func (s *Store) SaveOffset(o domain.FileOffset) error {
	_, err := s.db.Exec(`
		INSERT INTO offsets (path, inode, offset, first_line_hash) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET inode = excluded.inode, offset = excluded.offset, first_line_hash = excluded.first_line_hash
	`, o.Path, o.Inode, o.Offset, o.FirstLineHash)
	if err != nil {
		return fmt.Errorf("saving offset for %s: %w", o.Path, err)
	}
	return nil
}

// LoadOffset returns the stored offset for path, or the zero value and
// ok=false if none is recorded yet.
func (s *Store) LoadOffset(path string) (domain.FileOffset, bool, error) {
	var o domain.FileOffset
	o.Path = path
	err := s.db.QueryRow(`SELECT inode, offset, first_line_hash FROM offsets WHERE path = ?`, path).
		Scan(&o.Inode, &o.Offset, &o.FirstLineHash)
	if err == sql.ErrNoRows {
		return domain.FileOffset{}, false, nil
	}
	if err != nil {
		return domain.FileOffset{}, false, fmt.Errorf("loading offset for %s: %w", path, err)
	}
	return o, true, nil
}

// MarkWarned records that host has already been surfaced in a warned
// report so C3 does not repeat it.
func (s *Store) MarkWarned(host domain.Host) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO warned_hosts (host) VALUES (?)`, string(host))
	if err != nil {
		return fmt.Errorf("marking %s warned: %w", host, err)
	}
	return nil
}

// IsWarned reports whether host was already surfaced.
func (s *Store) IsWarned(host domain.Host) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT 1 FROM warned_hosts WHERE host = ?`, string(host)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking warned state for %s: %w", host, err)
	}
	return true, nil
}

// QueueSyncPending records host as awaiting upload to the sync peer.
func (s *Store) QueueSyncPending(host domain.Host, at time.Time) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO sync_pending (host, added_at) VALUES (?, ?)`, string(host), at.Unix())
	if err != nil {
		return fmt.Errorf("queuing sync-pending %s: %w", host, err)
	}
	return nil
}

// PendingSyncHosts returns every host staged for upload.
func (s *Store) PendingSyncHosts() ([]domain.Host, error) {
	rows, err := s.db.Query(`SELECT host FROM sync_pending ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("loading sync-pending hosts: %w", err)
	}
	defer rows.Close()

	var out []domain.Host
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning sync-pending row: %w", err)
		}
		out = append(out, domain.Host(h))
	}
	return out, rows.Err()
}

// ClearSyncPending removes host from the upload staging set once the
// peer has acknowledged it.
func (s *Store) ClearSyncPending(host domain.Host) error {
	_, err := s.db.Exec(`DELETE FROM sync_pending WHERE host = ?`, string(host))
	if err != nil {
		return fmt.Errorf("clearing sync-pending %s: %w", host, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
