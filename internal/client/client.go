package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/candidhq/collab/backend/internal/realtime"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = time.Second
)

var (
	errMissingTransport = errors.New("transport is required")

	// ErrReconnectExhausted indicates the bounded reconnect budget ran out.
	ErrReconnectExhausted = errors.New("client: reconnect attempts exhausted")
)

// Conn is one established realtime connection.
type Conn interface {
	Events() <-chan realtime.Event
	Join(ctx context.Context, candidateID string) error
	Leave(ctx context.Context, candidateID string) error
	Close() error
}

// Transport establishes realtime connections. Implementations decide the
// concrete protocol; the client only assumes named, tagged events and
// explicit room membership calls.
type Transport interface {
	Connect(ctx context.Context) (Conn, error)
}

// Config configures a Client.
type Config struct {
	Transport   Transport
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

// Client owns the realtime connection for one user session. It tracks which
// rooms the user cares about, re-issues joins after every successful
// reconnect (the server keeps no membership across disconnects), and routes
// incoming events into per-room feeds and the notification inbox.
type Client struct {
	transport   Transport
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	rooms     map[string]struct{}
	feeds     map[string]*NoteFeed
	inbox     *Inbox
	conn      Conn
	connected bool
}

// New constructs a client.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport:   cfg.Transport,
		maxAttempts: attempts,
		backoff:     backoff,
		logger:      logger,
		rooms:       make(map[string]struct{}),
		feeds:       make(map[string]*NoteFeed),
		inbox:       NewInbox(),
	}, nil
}

// Run connects and pumps events until ctx is cancelled or the reconnect
// budget is exhausted. Each disconnect grants a fresh budget of attempts
// with fixed backoff between them.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			return err
		}
		c.setConn(conn)
		c.rejoin(ctx, conn)
		c.pump(ctx, conn)
		c.clearConn()
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("realtime connection lost, reconnecting")
	}
}

func (c *Client) connect(ctx context.Context) (Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		conn, err := c.transport.Connect(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.logger.Warn("realtime connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err))
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectExhausted, lastErr)
}

func (c *Client) rejoin(ctx context.Context, conn Conn) {
	c.mu.Lock()
	tracked := make([]string, 0, len(c.rooms))
	for candidateID := range c.rooms {
		tracked = append(tracked, candidateID)
	}
	c.mu.Unlock()

	for _, candidateID := range tracked {
		if err := conn.Join(ctx, candidateID); err != nil {
			c.logger.Warn("room rejoin failed",
				zap.String("candidate_id", candidateID), zap.Error(err))
		}
	}
}

func (c *Client) pump(ctx context.Context, conn Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-conn.Events():
			if !ok {
				return
			}
			c.handleEvent(event)
		}
	}
}

func (c *Client) handleEvent(event realtime.Event) {
	if !event.Valid() {
		c.logger.Warn("event rejected at transport boundary",
			zap.String("event_type", string(event.Type)))
		return
	}
	switch event.Type {
	case realtime.EventTypeNote:
		c.Feed(event.Note.CandidateID).Apply(*event.Note)
	case realtime.EventTypeNotification:
		c.inbox.Apply(*event.Notification)
	}
}

// JoinRoom starts tracking a room and subscribes the live connection when
// one is up. Tracking survives reconnects; the join is re-issued each time.
func (c *Client) JoinRoom(ctx context.Context, candidateID string) error {
	c.mu.Lock()
	c.rooms[candidateID] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Join(ctx, candidateID)
}

// LeaveRoom stops tracking a room and unsubscribes the live connection.
func (c *Client) LeaveRoom(ctx context.Context, candidateID string) error {
	c.mu.Lock()
	delete(c.rooms, candidateID)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Leave(ctx, candidateID)
}

// Feed returns the reconciled note feed for a room, creating it on first
// use.
func (c *Client) Feed(candidateID string) *NoteFeed {
	c.mu.Lock()
	defer c.mu.Unlock()
	feed, ok := c.feeds[candidateID]
	if !ok {
		feed = NewNoteFeed()
		c.feeds[candidateID] = feed
	}
	return feed
}

// Inbox returns the reconciled notification inbox.
func (c *Client) Inbox() *Inbox {
	return c.inbox
}

// Connected reports the connectivity flag. Socket-level failures flip this
// flag; they never touch in-flight composition state.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) setConn(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
}

func (c *Client) clearConn() {
	c.mu.Lock()
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
}
