package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultBackplaneChannel = "collab:events"

var errMissingRedisClient = errors.New("redis client is required")

// envelope is the wire form an event takes on the redis channel. Exactly
// one of Room and User addresses the event.
type envelope struct {
	Room  string `json:"room,omitempty"`
	User  string `json:"user,omitempty"`
	Event Event  `json:"event"`
}

// Backplane mirrors hub events over redis pub/sub so that room broadcasts
// and personal pushes reach sessions connected to other API instances. A
// single-instance deployment runs without one.
type Backplane struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewBackplane constructs a backplane on an established redis client.
func NewBackplane(client *redis.Client, logger *zap.Logger) (*Backplane, error) {
	if client == nil {
		return nil, errMissingRedisClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backplane{client: client, channel: defaultBackplaneChannel, logger: logger}, nil
}

// PublishNote forwards a room event through redis.
func (b *Backplane) PublishNote(ctx context.Context, candidateID string, note notes.Note) error {
	return b.publish(ctx, envelope{Room: candidateID, Event: NewNoteEvent(note)})
}

// PublishNotification forwards a personal-channel event through redis.
func (b *Backplane) PublishNotification(ctx context.Context, recipientID string, record notifications.Record) error {
	return b.publish(ctx, envelope{User: recipientID, Event: NewNotificationEvent(record)})
}

func (b *Backplane) publish(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal backplane envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish backplane envelope: %w", err)
	}
	return nil
}

// Listen subscribes to the backplane channel and re-injects every received
// event into the local hub. It blocks until ctx is cancelled or the
// subscription closes; malformed payloads are logged and skipped.
func (b *Backplane) Listen(ctx context.Context, hub *Hub) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Force the subscription before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe backplane channel: %w", err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(message.Payload), &env); err != nil {
				b.logger.Warn("backplane payload rejected", zap.Error(err))
				continue
			}
			if !env.Event.Valid() {
				b.logger.Warn("backplane event rejected",
					zap.String("event_type", string(env.Event.Type)))
				continue
			}
			switch {
			case env.Room != "" && env.Event.Type == EventTypeNote:
				hub.deliverNote(env.Room, *env.Event.Note)
			case env.User != "" && env.Event.Type == EventTypeNotification:
				hub.deliverNotification(env.User, *env.Event.Notification)
			default:
				b.logger.Warn("backplane envelope missing target")
			}
		}
	}
}
