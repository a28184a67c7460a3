package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAppendAssignsID(t *testing.T) {
	var l Ledger

	a, err := l.Append(Checkpoint{Location: "A"})
	require.NoError(t, err)
	b, err := l.Append(Checkpoint{Location: "B"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, l.Len())
}

func TestLedgerAppendDuplicateID(t *testing.T) {
	var l Ledger
	_, err := l.Append(Checkpoint{ID: "cp-1", Location: "A"})
	require.NoError(t, err)

	_, err = l.Append(Checkpoint{ID: "cp-1", Location: "B"})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 1, l.Len())
}

func TestLedgerKeepsInsertionOrder(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLedger(nil)
	_, _ = l.Append(Checkpoint{ID: "late", Location: "B", Timestamp: t0.Add(48 * time.Hour)})
	_, _ = l.Append(Checkpoint{ID: "early", Location: "A", Timestamp: t0})

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "late", items[0].ID)
	assert.Equal(t, "early", items[1].ID)

	sorted := l.Sorted()
	assert.Equal(t, "early", sorted[0].ID)
	assert.Equal(t, "late", sorted[1].ID)

	// Sorting a copy never touches the ledger.
	assert.Equal(t, "late", l.Items()[0].ID)
}

func TestLedgerLatest(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewLedger(nil)

	_, ok := l.Latest()
	assert.False(t, ok)

	_, _ = l.Append(Checkpoint{ID: "b", Timestamp: t0.Add(time.Hour)})
	_, _ = l.Append(Checkpoint{ID: "a", Timestamp: t0})
	latest, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, "b", latest.ID)

	_, _ = l.Append(Checkpoint{ID: "c", Timestamp: t0.Add(time.Hour)})
	latest, _ = l.Latest()
	assert.Equal(t, "c", latest.ID, "ties go to the later insertion")
}

func TestLedgerUpdateAndDelete(t *testing.T) {
	l := NewLedger([]Checkpoint{{ID: "x", Location: "Old"}})

	cp, err := l.Update("x", func(c *Checkpoint) error {
		c.Location = "New"
		c.ID = "hijack"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "x", cp.ID)
	assert.Equal(t, "New", cp.Location)

	_, err = l.Update("missing", func(*Checkpoint) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrCheckpointNotFound))

	require.NoError(t, l.Delete("x"))
	assert.Equal(t, 0, l.Len())

	err = l.Delete("x")
	assert.True(t, errors.Is(err, ErrNotFound), "a repeated delete reports not found")
}

func TestLedgerItemsAreCopies(t *testing.T) {
	l := NewLedger([]Checkpoint{{ID: "x", Coordinates: &Coordinates{Lat: 1, Lng: 2}}})

	items := l.Items()
	items[0].Coordinates.Lat = 50

	got, err := l.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Coordinates.Lat)
}
