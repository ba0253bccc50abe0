// Package client implements the connection-owning side of the collaboration
// engine: the composer driving mention suggestions, the reconciliation of
// fetched history with live-pushed events, and reconnect handling with
// explicit room re-subscription.
package client

import (
	"sync"

	"github.com/candidhq/collab/backend/internal/notes"
)

// NoteFeed is one room's ordered, duplicate-free note sequence. A fetched
// batch establishes the initial sequence; live-pushed notes append only
// when their id is unseen, preserving arrival order.
type NoteFeed struct {
	mu    sync.Mutex
	order []string
	byID  map[string]notes.Note
}

// NewNoteFeed constructs an empty feed.
func NewNoteFeed() *NoteFeed {
	return &NoteFeed{byID: make(map[string]notes.Note)}
}

// Bootstrap merges a fetched history batch. Existing entries keep their
// position; pushes that raced ahead of the fetch are not duplicated.
func (f *NoteFeed) Bootstrap(fetched []notes.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, note := range fetched {
		f.apply(note)
	}
}

// Apply merges one live-pushed note. Returns true when the note was new to
// the feed.
func (f *NoteFeed) Apply(note notes.Note) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(note)
}

func (f *NoteFeed) apply(note notes.Note) bool {
	if note.ID == "" {
		return false
	}
	if _, exists := f.byID[note.ID]; exists {
		return false
	}
	f.byID[note.ID] = note
	f.order = append(f.order, note.ID)
	return true
}

// Notes returns the reconciled sequence in arrival order.
func (f *NoteFeed) Notes() []notes.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	sequence := make([]notes.Note, 0, len(f.order))
	for _, id := range f.order {
		sequence = append(sequence, f.byID[id])
	}
	return sequence
}

// Len reports the reconciled sequence length.
func (f *NoteFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
