package engine

import (
	"fmt"
	"slices"
)

// JournalLimit is the number of entries kept in memory.
const JournalLimit = 1000

// Event is a notable occurrence: a status change, an expired policy, a treaty.
type Event struct {
	Turn        int    `json:"turn" db:"turn"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "diplomacy", "policy", "stability", "economy"
}

// Journal is a bounded log of recent events, oldest first.
type Journal struct {
	entries []Event
	// Entries at or after this index have not been handed to Drain yet.
	pending int
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an event, dropping the oldest beyond JournalLimit.
func (j *Journal) Record(turn int, category, format string, args ...any) {
	j.entries = append(j.entries, Event{
		Turn:        turn,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
	if over := len(j.entries) - JournalLimit; over > 0 {
		j.entries = slices.Delete(j.entries, 0, over)
		j.pending = max(j.pending-over, 0)
	}
}

// Recent returns up to limit of the newest events, oldest first.
func (j *Journal) Recent(limit int) []Event {
	start := 0
	if limit > 0 && len(j.entries) > limit {
		start = len(j.entries) - limit
	}
	return slices.Clone(j.entries[start:])
}

// Drain returns the events recorded since the previous Drain.
func (j *Journal) Drain() []Event {
	out := slices.Clone(j.entries[j.pending:])
	j.pending = len(j.entries)
	return out
}

// Len returns the number of events held.
func (j *Journal) Len() int {
	return len(j.entries)
}
