// Package postgres provides a PostgreSQL implementation of the journal
// Recorder, for deployments that centralize bridge traffic from many
// hosts in one place.
package postgres

import (
	"context"
	"database/sql"
	stdSync "sync"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/journal"

	// PostgreSQL driver
	_ "github.com/lib/pq"
)

const (
	opOpen   = "postgres.Open"
	opRecord = "postgres.Record"
)

const schema = `
CREATE TABLE IF NOT EXISTS bridge_journal (
	id           TEXT PRIMARY KEY,
	recorded_at  TIMESTAMPTZ NOT NULL,
	direction    TEXT NOT NULL,
	store_key    TEXT NOT NULL,
	message_type TEXT NOT NULL,
	raw          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bridge_journal_store ON bridge_journal(store_key, recorded_at);
`

// Journal records bridge traffic to a PostgreSQL database.
type Journal struct {
	db *sql.DB

	mu     stdSync.Mutex
	closed bool
}

// New connects with the given DSN and ensures the journal schema exists.
func New(dsn string) (*Journal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, bridgeErrors.NewStorageError(opOpen, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
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
		return bridgeErrors.NewStorageError(opRecord, sql.ErrConnDone)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO bridge_journal (id, recorded_at, direction, store_key, message_type, raw)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Time, string(entry.Direction), entry.StoreKey, entry.MessageType, entry.Raw)
	if err != nil {
		return bridgeErrors.NewStorageError(opRecord, err)
	}
	return nil
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
