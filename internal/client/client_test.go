package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
	"github.com/candidhq/collab/backend/internal/realtime"
)

type fakeConn struct {
	mu     sync.Mutex
	events chan realtime.Event
	joins  []string
	leaves []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan realtime.Event, 16)}
}

func (c *fakeConn) Events() <-chan realtime.Event {
	return c.events
}

func (c *fakeConn) Join(ctx context.Context, candidateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins = append(c.joins, candidateID)
	return nil
}

func (c *fakeConn) Leave(ctx context.Context, candidateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaves = append(c.leaves, candidateID)
	return nil
}

func (c *fakeConn) Close() error {
	return nil
}

func (c *fakeConn) joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.joins...)
}

type scriptedTransport struct {
	mu       sync.Mutex
	failures int
	conns    []*fakeConn
	attempts int
}

func (t *scriptedTransport) Connect(ctx context.Context) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
	if t.failures > 0 {
		t.failures--
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *scriptedTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *scriptedTransport) conn(index int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[index]
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal(message)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewRequiresTransport(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without transport")
	}
}

func TestRunRoutesEventsIntoFeedsAndInbox(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(Config{Transport: transport, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(ctx)
	}()

	waitFor(t, func() bool { return transport.connCount() == 1 }, "client never connected")
	conn := transport.conn(0)

	conn.events <- realtime.NewNoteEvent(notes.Note{ID: "n1", CandidateID: "cand-1"})
	conn.events <- realtime.NewNotificationEvent(notifications.Record{ID: "rec-1", NoteID: "n1", RecipientID: "u2"})

	waitFor(t, func() bool { return client.Feed("cand-1").Len() == 1 }, "note never reached the feed")
	waitFor(t, func() bool { return len(client.Inbox().Records()) == 1 }, "notification never reached the inbox")

	cancel()
	<-done
}

func TestRunDropsInvalidEvents(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(Config{Transport: transport, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	waitFor(t, func() bool { return transport.connCount() == 1 }, "client never connected")
	conn := transport.conn(0)

	conn.events <- realtime.Event{Type: realtime.EventTypeNote}
	conn.events <- realtime.NewNoteEvent(notes.Note{ID: "n1", CandidateID: "cand-1"})

	waitFor(t, func() bool { return client.Feed("cand-1").Len() == 1 }, "valid event never arrived")
	if client.Feed("").Len() != 0 {
		t.Fatal("invalid event must not create a feed")
	}
}

func TestRunRejoinsTrackedRoomsAfterReconnect(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(Config{Transport: transport, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	waitFor(t, func() bool { return transport.connCount() == 1 }, "client never connected")
	if err := client.JoinRoom(ctx, "cand-1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	first := transport.conn(0)
	waitFor(t, func() bool { return len(first.joined()) == 1 }, "live join never issued")

	// Drop the connection; the client reconnects and re-issues the join.
	close(first.events)
	waitFor(t, func() bool { return transport.connCount() == 2 }, "client never reconnected")
	second := transport.conn(1)
	waitFor(t, func() bool {
		joined := second.joined()
		return len(joined) == 1 && joined[0] == "cand-1"
	}, "tracked room was not rejoined after reconnect")
}

func TestConnectExhaustsBoundedBudget(t *testing.T) {
	transport := &scriptedTransport{failures: 100}
	client, err := New(Config{Transport: transport, MaxAttempts: 3, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	runErr := client.Run(context.Background())
	if !errors.Is(runErr, ErrReconnectExhausted) {
		t.Fatalf("expected ErrReconnectExhausted, got %v", runErr)
	}
	if transport.attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", transport.attempts)
	}
}

func TestFreshBudgetPerDisconnect(t *testing.T) {
	transport := &scriptedTransport{failures: 2}
	client, err := New(Config{Transport: transport, MaxAttempts: 3, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	// Two failures are absorbed within the first budget.
	waitFor(t, func() bool { return transport.connCount() == 1 }, "client never connected")

	transport.mu.Lock()
	transport.failures = 2
	transport.mu.Unlock()
	close(transport.conn(0).events)

	// The next disconnect grants a fresh budget that also absorbs failures.
	waitFor(t, func() bool { return transport.connCount() == 2 }, "client never reconnected")
}

func TestLeaveRoomStopsTracking(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(Config{Transport: transport, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	waitFor(t, func() bool { return transport.connCount() == 1 }, "client never connected")
	if err := client.JoinRoom(ctx, "cand-1"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := client.LeaveRoom(ctx, "cand-1"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	close(transport.conn(0).events)
	waitFor(t, func() bool { return transport.connCount() == 2 }, "client never reconnected")
	second := transport.conn(1)
	time.Sleep(20 * time.Millisecond)
	if len(second.joined()) != 0 {
		t.Fatalf("left room must not be rejoined, got %v", second.joined())
	}
}

func TestConnectedFlag(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(Config{Transport: transport, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if client.Connected() {
		t.Fatal("expected disconnected before run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = client.Run(ctx) }()
	waitFor(t, func() bool { return client.Connected() }, "connected flag never set")

	cancel()
	waitFor(t, func() bool { return !client.Connected() }, "connected flag never cleared")
}
