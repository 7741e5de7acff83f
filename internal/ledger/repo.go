package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/blogmigrate/internal/apperr"
)

// Entry is one migrated post.
type Entry struct {
	Slug        string
	Source      string
	Destination string
	Checksum    string
	MigratedAt  time.Time
}

// Recorder is what the migration needs from a ledger.
type Recorder interface {
	Record(e Entry) error
	Lookup(slug string) (*Entry, error)
}

var _ Recorder = (*DB)(nil)

// Record inserts or replaces the entry for e.Slug.
func (db *DB) Record(e Entry) error {
	if e.MigratedAt.IsZero() {
		e.MigratedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO migrations (slug, source, destination, checksum, migrated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			source      = excluded.source,
			destination = excluded.destination,
			checksum    = excluded.checksum,
			migrated_at = excluded.migrated_at
	`, e.Slug, e.Source, e.Destination, e.Checksum, e.MigratedAt.UTC())
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", e.Slug, err)
	}
	return nil
}

// Lookup returns the entry for slug, or apperr.ErrNotFound.
func (db *DB) Lookup(slug string) (*Entry, error) {
	var e Entry
	err := db.conn.QueryRow(`
		SELECT slug, source, destination, checksum, migrated_at
		FROM migrations WHERE slug = ?
	`, slug).Scan(&e.Slug, &e.Source, &e.Destination, &e.Checksum, &e.MigratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: lookup %s: %w", slug, err)
	}
	return &e, nil
}

// All returns every entry ordered by slug.
func (db *DB) All() ([]Entry, error) {
	rows, err := db.conn.Query(`
		SELECT slug, source, destination, checksum, migrated_at
		FROM migrations ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Slug, &e.Source, &e.Destination, &e.Checksum, &e.MigratedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
