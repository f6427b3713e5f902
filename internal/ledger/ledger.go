// Package ledger persists the set of lead URLs already ingested.
//
// The ledger is append-only: URLs are merged in after every ingest pass
// and are never removed. Loading from a fresh database yields an empty
// set, not an error.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Ledger is a SQLite-backed set of seen lead identities.
type Ledger struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS seen_urls (
	url        TEXT PRIMARY KEY,
	first_seen DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Open opens (or creates) the ledger database at the given path and
// ensures the schema exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ledger: migrate")
	}
	return &Ledger{db: db}, nil
}

// Load returns the full set of seen URLs.
func (l *Ledger) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT url FROM seen_urls`)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: load")
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, eris.Wrap(err, "ledger: scan url")
		}
		seen[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ledger: iterate")
	}
	return seen, nil
}

// Merge persists the union of the stored set and urls. Merging the same
// URLs twice leaves the ledger unchanged.
func (l *Ledger) Merge(ctx context.Context, urls map[string]struct{}) error {
	if len(urls) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "ledger: begin merge")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO seen_urls (url, first_seen) VALUES (?, ?)`)
	if err != nil {
		return eris.Wrap(err, "ledger: prepare merge")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for url := range urls {
		if _, err := stmt.ExecContext(ctx, url, now); err != nil {
			return eris.Wrapf(err, "ledger: merge %s", url)
		}
	}

	return eris.Wrap(tx.Commit(), "ledger: commit merge")
}

// Count returns the number of seen URLs.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_urls`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: count")
	}
	return n, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
