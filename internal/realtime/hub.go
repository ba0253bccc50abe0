// Package realtime implements the in-process broadcast layer: candidate
// rooms for note events, per-user personal channels for notifications, and
// an optional redis backplane that mirrors events across API instances.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBufferSize = 16

var (
	// ErrSessionNotFound indicates a room operation referenced a session the
	// hub does not know, typically after a disconnect.
	ErrSessionNotFound = errors.New("realtime: session not found")
	// ErrMissingUserID indicates a connect attempt without an identity.
	ErrMissingUserID = errors.New("realtime: user id is required")
)

// Session is one client connection's explicitly owned handle on the hub.
// A user may hold several concurrent sessions (tabs, devices); each receives
// its own copy of every event addressed to the user or to a joined room.
// Sessions carry no memory across disconnects: the client re-issues joins
// after every reconnect.
type Session struct {
	id     string
	userID string
	events chan Event
}

// ID returns the session identifier used by room membership calls.
func (s *Session) ID() string {
	return s.id
}

// UserID returns the identity the session was connected with.
func (s *Session) UserID() string {
	return s.userID
}

// Events exposes the session's delivery stream. Delivery is non-blocking on
// the hub side; a session that stops draining misses events rather than
// stalling the room.
func (s *Session) Events() <-chan Event {
	return s.events
}

// HubConfig configures the broadcast hub.
type HubConfig struct {
	BufferSize int
	Backplane  *Backplane
	Logger     *zap.Logger
}

// Hub maintains session registry, room membership and personal channels.
// One mutex serializes join/leave/publish, which keeps per-room and
// per-channel delivery order identical for every member.
type Hub struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	rooms     map[string]map[string]*Session
	users     map[string]map[string]*Session
	buffer    int
	backplane *Backplane
	logger    *zap.Logger
}

// NewHub constructs a hub.
func NewHub(cfg HubConfig) *Hub {
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions:  make(map[string]*Session),
		rooms:     make(map[string]map[string]*Session),
		users:     make(map[string]map[string]*Session),
		buffer:    buffer,
		backplane: cfg.Backplane,
		logger:    logger,
	}
}

// Connect registers a new session for the user and binds its lifetime to
// ctx: cancellation disconnects the session and clears its memberships.
func (h *Hub) Connect(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	session := &Session{
		id:     sessionID.String(),
		userID: userID,
		events: make(chan Event, h.buffer),
	}

	h.mu.Lock()
	h.sessions[session.id] = session
	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[string]*Session)
	}
	h.users[userID][session.id] = session
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.Disconnect(session)
	}()

	return session, nil
}

// Disconnect removes the session from the registry, its personal channel
// and every room it joined. Disconnecting twice is harmless.
func (h *Hub) Disconnect(session *Session) {
	if session == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, session.id)
	if members := h.users[session.userID]; members != nil {
		delete(members, session.id)
		if len(members) == 0 {
			delete(h.users, session.userID)
		}
	}
	for candidateID, members := range h.rooms {
		delete(members, session.id)
		if len(members) == 0 {
			delete(h.rooms, candidateID)
		}
	}
}

// JoinRoom subscribes the session to a candidate's room. Joining twice has
// the same effect as joining once.
func (h *Hub) JoinRoom(candidateID, sessionID string) error {
	if candidateID == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if _, ok := h.rooms[candidateID]; !ok {
		h.rooms[candidateID] = make(map[string]*Session)
	}
	h.rooms[candidateID][sessionID] = session
	return nil
}

// LeaveRoom unsubscribes the session from a room. Leaving a room the
// session never joined is a no-op, not an error; empty rooms are dropped.
func (h *Hub) LeaveRoom(candidateID, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	members, ok := h.rooms[candidateID]
	if !ok {
		return nil
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, candidateID)
	}
	return nil
}

// SessionOwner reports which user a live session belongs to.
func (h *Hub) SessionOwner(sessionID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[sessionID]
	if !ok {
		return "", false
	}
	return session.userID, true
}

// RoomSize reports current membership of a room; zero means the room has
// been garbage-collected.
func (h *Hub) RoomSize(candidateID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[candidateID])
}

// PublishNote broadcasts a stored note to the candidate's room. With a
// backplane configured the event travels through redis so every API
// instance delivers it; the local fallback keeps delivery working when
// redis is unreachable. Sessions joining after the call do not receive it.
func (h *Hub) PublishNote(ctx context.Context, candidateID string, note notes.Note) error {
	if candidateID == "" {
		return nil
	}
	if h.backplane != nil {
		err := h.backplane.PublishNote(ctx, candidateID, note)
		if err == nil {
			return nil
		}
		h.logger.Warn("realtime backplane note publish failed, delivering locally",
			zap.String("candidate_id", candidateID), zap.Error(err))
	}
	h.deliverNote(candidateID, note)
	return nil
}

// PublishNotification delivers a record to every active session of the
// recipient. With zero sessions the push is dropped; the durable record
// remains queryable.
func (h *Hub) PublishNotification(ctx context.Context, recipientID string, record notifications.Record) error {
	if recipientID == "" {
		return nil
	}
	if h.backplane != nil {
		err := h.backplane.PublishNotification(ctx, recipientID, record)
		if err == nil {
			return nil
		}
		h.logger.Warn("realtime backplane notification publish failed, delivering locally",
			zap.String("recipient_id", recipientID), zap.Error(err))
	}
	h.deliverNotification(recipientID, record)
	return nil
}

func (h *Hub) deliverNote(candidateID string, note notes.Note) {
	event := NewNoteEvent(note)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, session := range h.rooms[candidateID] {
		h.send(session, event)
	}
}

func (h *Hub) deliverNotification(recipientID string, record notifications.Record) {
	event := NewNotificationEvent(record)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, session := range h.users[recipientID] {
		h.send(session, event)
	}
}

func (h *Hub) send(session *Session, event Event) {
	select {
	case session.events <- event:
	default:
		h.logger.Warn("realtime session buffer full, event dropped",
			zap.String("session_id", session.id),
			zap.String("user_id", session.userID),
			zap.String("event_type", string(event.Type)))
	}
}
