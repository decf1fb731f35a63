// Package sqlite provides a SQLite implementation of the journal Recorder.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdSync "sync"
	"time"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/journal"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Operation constants for consistent error reporting
const (
	opOpen    = "sqlite.Open"
	opRecord  = "sqlite.Record"
	opEntries = "sqlite.Entries"
)

var ErrJournalClosed = errors.New("journal is closed")

const schema = `
CREATE TABLE IF NOT EXISTS bridge_journal (
	id           TEXT PRIMARY KEY,
	recorded_at  TIMESTAMP NOT NULL,
	direction    TEXT NOT NULL,
	store_key    TEXT NOT NULL,
	message_type TEXT NOT NULL,
	raw          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bridge_journal_store ON bridge_journal(store_key, recorded_at);
`

// Config holds configuration options for the SQLite journal.
type Config struct {
	// Path is the database file path, or ":memory:"
	Path string

	// BusyTimeout is applied via the busy_timeout pragma
	BusyTimeout time.Duration
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// Journal records bridge traffic to a SQLite database.
type Journal struct {
	db *sql.DB

	mu     stdSync.Mutex
	closed bool
}

// New opens (creating if needed) the journal database at cfg.Path.
func New(cfg Config) (*Journal, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, bridgeErrors.NewStorageError(opOpen, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, bridgeErrors.NewStorageError(opOpen, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(ctx context.Context, entry journal.Entry) error {
	j.mu.Lock()
	closed := j.closed
	j.mu.Unlock()
	if closed {
		return bridgeErrors.NewStorageError(opRecord, ErrJournalClosed)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO bridge_journal (id, recorded_at, direction, store_key, message_type, raw)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Time, string(entry.Direction), entry.StoreKey, entry.MessageType, entry.Raw)
	if err != nil {
		return bridgeErrors.NewStorageError(opRecord, err)
	}
	return nil
}

// Entries returns up to limit entries in recording order, oldest first.
// Inspection tooling uses this; the bridge never does.
func (j *Journal) Entries(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, recorded_at, direction, store_key, message_type, raw
		 FROM bridge_journal ORDER BY recorded_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, bridgeErrors.NewStorageError(opEntries, err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		var e journal.Entry
		var direction string
		if err := rows.Scan(&e.ID, &e.Time, &direction, &e.StoreKey, &e.MessageType, &e.Raw); err != nil {
			return nil, bridgeErrors.NewStorageError(opEntries, err)
		}
		e.Direction = journal.Direction(direction)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, bridgeErrors.NewStorageError(opEntries, err)
	}
	return entries, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
