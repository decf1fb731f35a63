package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/go-bridge-kit/journal"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndReadBack(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := journal.NewEntry(journal.Inbound, "counter", "EVENT", `{"type":"EVENT","storeKey":"counter","event":{"type":"INCREMENT"}}`)
	first.Time = base
	second := journal.NewEntry(journal.Outbound, "counter", "STATE_UPDATE", `{"type":"STATE_UPDATE","storeKey":"counter","operations":[]}`)
	second.Time = base.Add(time.Second)

	require.NoError(t, j.Record(ctx, first))
	require.NoError(t, j.Record(ctx, second))

	entries, err := j.Entries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, journal.Inbound, entries[0].Direction)
	assert.Equal(t, "counter", entries[0].StoreKey)
	assert.Equal(t, "EVENT", entries[0].MessageType)
	assert.Equal(t, first.Raw, entries[0].Raw)

	assert.Equal(t, second.ID, entries[1].ID)
	assert.Equal(t, journal.Outbound, entries[1].Direction)
	assert.Equal(t, "STATE_UPDATE", entries[1].MessageType)
}

func TestJournal_EntriesHonorsLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := journal.NewEntry(journal.Inbound, "counter", "EVENT", `{}`)
		entry.Time = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, j.Record(ctx, entry))
	}

	entries, err := j.Entries(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestJournal_RecordAfterClose(t *testing.T) {
	j, err := New(DefaultConfig(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close(), "close is idempotent")

	err = j.Record(context.Background(), journal.NewEntry(journal.Inbound, "counter", "EVENT", `{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJournalClosed)
}
