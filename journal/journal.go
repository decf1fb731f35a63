// Package journal defines an append-only audit trail of bridge wire
// traffic. Recorders persist every message crossing the bridge for
// inspection and debugging; the bridge itself never reads entries back,
// so journaling adds no state persistence semantics.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Direction indicates which way a message crossed the bridge.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Entry is one recorded wire message.
type Entry struct {
	ID          string
	Time        time.Time
	Direction   Direction
	StoreKey    string
	MessageType string
	Raw         string
}

// NewEntry stamps a journal entry with a fresh ID and UTC timestamp.
func NewEntry(direction Direction, storeKey, messageType, raw string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Direction:   direction,
		StoreKey:    storeKey,
		MessageType: messageType,
		Raw:         raw,
	}
}

// Recorder persists journal entries. Implementations can use any storage
// backend (SQLite, PostgreSQL, in-memory).
type Recorder interface {
	// Record persists one entry
	Record(ctx context.Context, entry Entry) error

	// Close closes the recorder and releases resources
	Close() error
}
