package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is a timestamped location/status event in a package's history.
// CustomDate and CustomTime mark a timestamp that was set by hand rather than
// taken from the submission time.
type Checkpoint struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status,omitempty"`
	Location    string       `json:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Description string       `json:"description,omitempty"`
	CustomDate  bool         `json:"customDate"`
	CustomTime  bool         `json:"customTime"`
}

func (c Checkpoint) clone() Checkpoint {
	if c.Coordinates != nil {
		coords := *c.Coordinates
		c.Coordinates = &coords
	}
	return c
}

// Ledger is the ordered checkpoint history of one package.
//
// Insertion order is the contract. Timestamps may be out of order when
// operators backfill history; the ledger neither rejects nor reorders them.
type Ledger struct {
	items []Checkpoint
}

// NewLedger rebuilds a ledger from stored checkpoints, keeping their order.
func NewLedger(items []Checkpoint) Ledger {
	l := Ledger{items: make([]Checkpoint, 0, len(items))}
	for _, c := range items {
		l.items = append(l.items, c.clone())
	}
	return l
}

func (l *Ledger) Len() int { return len(l.items) }

// Items returns a copy of the checkpoints in insertion order.
func (l *Ledger) Items() []Checkpoint {
	out := make([]Checkpoint, 0, len(l.items))
	for _, c := range l.items {
		out = append(out, c.clone())
	}
	return out
}

// Sorted returns a copy ordered by timestamp, keeping insertion order for ties.
func (l *Ledger) Sorted() []Checkpoint {
	out := l.Items()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Get returns the checkpoint with the given id.
func (l *Ledger) Get(id string) (Checkpoint, error) {
	i := l.index(id)
	if i < 0 {
		return Checkpoint{}, fmt.Errorf("get %q: %w", id, ErrCheckpointNotFound)
	}
	return l.items[i].clone(), nil
}

// Append adds c at the end of the ledger. A missing id is generated; a
// duplicate id is a conflict. The caller resolves the timestamp.
func (l *Ledger) Append(c Checkpoint) (Checkpoint, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if l.index(c.ID) >= 0 {
		return Checkpoint{}, fmt.Errorf("append checkpoint %q: %w", c.ID, ErrConflict)
	}
	c = c.clone()
	l.items = append(l.items, c)
	return c.clone(), nil
}

// Update applies fn to the checkpoint with the given id in place.
func (l *Ledger) Update(id string, fn func(*Checkpoint) error) (Checkpoint, error) {
	i := l.index(id)
	if i < 0 {
		return Checkpoint{}, fmt.Errorf("update %q: %w", id, ErrCheckpointNotFound)
	}

	updated := l.items[i].clone()
	if err := fn(&updated); err != nil {
		return Checkpoint{}, err
	}
	updated.ID = id
	l.items[i] = updated
	return updated.clone(), nil
}

// Delete removes the checkpoint with the given id. Deleting an id that is
// already gone reports ErrNotFound; callers retrying a delete may treat that
// as success.
func (l *Ledger) Delete(id string) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, ErrCheckpointNotFound)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// Latest returns the checkpoint with the greatest timestamp. On ties the
// later-inserted checkpoint wins.
func (l *Ledger) Latest() (Checkpoint, bool) {
	if len(l.items) == 0 {
		return Checkpoint{}, false
	}
	best := 0
	for i := 1; i < len(l.items); i++ {
		if !l.items[i].Timestamp.Before(l.items[best].Timestamp) {
			best = i
		}
	}
	return l.items[best].clone(), true
}

func (l *Ledger) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (l Ledger) MarshalJSON() ([]byte, error) {
	if l.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.items)
}

func (l *Ledger) UnmarshalJSON(b []byte) error {
	var items []Checkpoint
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = NewLedger(items)
	return nil
}
