package client

import (
	"sync"

	"github.com/candidhq/collab/backend/internal/notifications"
)

// Inbox reconciles notification observations from fetch-on-load and live
// push into one ordered, duplicate-free sequence. Identity is the
// (noteID, recipientID) pair, not the record id, because the two producer
// paths can race on the same logical record. The read flag is monotonic:
// once either observation reports read, the merged entry stays read.
type Inbox struct {
	mu    sync.Mutex
	order []notifications.Identity
	byKey map[notifications.Identity]notifications.Record
}

// NewInbox constructs an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{byKey: make(map[notifications.Identity]notifications.Record)}
}

// Bootstrap merges a fetched batch in its given order.
func (i *Inbox) Bootstrap(fetched []notifications.Record) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, record := range fetched {
		i.apply(record)
	}
}

// Apply merges one observation from either producer path. Returns true when
// the logical record was previously unknown.
func (i *Inbox) Apply(record notifications.Record) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.apply(record)
}

func (i *Inbox) apply(record notifications.Record) bool {
	key := notifications.IdentityOf(record)
	if key.NoteID == "" || key.RecipientID == "" {
		return false
	}
	existing, known := i.byKey[key]
	if known {
		// Collapse to one logical entry; read state only moves forward.
		if record.IsRead && !existing.IsRead {
			existing.IsRead = true
			i.byKey[key] = existing
		}
		return false
	}
	i.byKey[key] = record
	i.order = append(i.order, key)
	return true
}

// MarkRead marks the logical record containing recordID as read locally.
// Unknown ids are ignored; the durable transition lives server-side.
func (i *Inbox) MarkRead(recordID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for key, record := range i.byKey {
		if record.ID == recordID && !record.IsRead {
			record.IsRead = true
			i.byKey[key] = record
			return
		}
	}
}

// MarkAllRead marks every currently known record read locally.
func (i *Inbox) MarkAllRead() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for key, record := range i.byKey {
		if !record.IsRead {
			record.IsRead = true
			i.byKey[key] = record
		}
	}
}

// Records returns the reconciled sequence in arrival order.
func (i *Inbox) Records() []notifications.Record {
	i.mu.Lock()
	defer i.mu.Unlock()
	sequence := make([]notifications.Record, 0, len(i.order))
	for _, key := range i.order {
		sequence = append(sequence, i.byKey[key])
	}
	return sequence
}

// UnreadCount reports how many reconciled records are unread.
func (i *Inbox) UnreadCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	count := 0
	for _, record := range i.byKey {
		if !record.IsRead {
			count++
		}
	}
	return count
}
