package realtime

import (
	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
)

// EventType tags the variant carried by an Event.
type EventType string

const (
	// EventTypeNote announces a newly created note to room members.
	EventTypeNote EventType = "new-note"
	// EventTypeNotification delivers a mention notification to a user's
	// personal channel.
	EventTypeNotification EventType = "notification"
)

// Event is the tagged union delivered over a session's stream. Exactly one
// payload field is set, matching Type; payloads are validated at the
// transport boundary rather than duck-typed.
type Event struct {
	Type         EventType             `json:"type"`
	Note         *notes.Note           `json:"note,omitempty"`
	Notification *notifications.Record `json:"notification,omitempty"`
}

// NewNoteEvent wraps a stored note for room broadcast.
func NewNoteEvent(note notes.Note) Event {
	return Event{Type: EventTypeNote, Note: &note}
}

// NewNotificationEvent wraps a notification record for personal delivery.
func NewNotificationEvent(record notifications.Record) Event {
	return Event{Type: EventTypeNotification, Notification: &record}
}

// Valid reports whether the event's payload matches its tag.
func (e Event) Valid() bool {
	switch e.Type {
	case EventTypeNote:
		return e.Note != nil && e.Notification == nil
	case EventTypeNotification:
		return e.Notification != nil && e.Note == nil
	default:
		return false
	}
}
