// Package notifications implements mention fan-out and read-state tracking.
// Every mention on a stored note becomes one durable record per recipient,
// pushed best-effort to that recipient's live sessions; read transitions
// are monotonic and idempotent under concurrent sessions.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candidhq/collab/backend/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrRecordNotFound indicates the referenced notification does not exist
	// for the calling recipient.
	ErrRecordNotFound = errors.New("notifications: record not found")
)

const (
	opServiceNew  = "notifications.service.new"
	opFanout      = "notifications.fanout"
	opList        = "notifications.list"
	opMarkRead    = "notifications.mark_read"
	opMarkAllRead = "notifications.mark_all_read"

	maxMessageSnippet = 120
)

func newServiceError(operation, reason string, cause error) error {
	return fmt.Errorf("%s.%s: %w", operation, reason, cause)
}

// Publisher delivers a record to the recipient's live sessions. Delivery is
// best effort; a recipient with zero sessions simply misses the push and
// relies on fetch-on-load.
type Publisher interface {
	PublishNotification(ctx context.Context, recipientID string, record Record) error
}

// IDProvider issues notification record identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the notification service.
type ServiceConfig struct {
	Database   *gorm.DB
	Publisher  Publisher
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service persists notification records and tracks read state.
type Service struct {
	db         *gorm.DB
	publisher  Publisher
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the notification service. Publisher may be nil when
// live push is disabled; records are still persisted.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		publisher:  cfg.Publisher,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Fanout creates one record per mentioned recipient for a stored note and
// pushes each to the recipient's personal channel. Recipients are
// deduplicated and the note's author is excluded even when self-mentioned.
// Inserting an already-existing (noteID, recipientID) pair is a no-op on
// the stored row; the canonical row is still pushed so reconnecting
// sessions converge.
func (s *Service) Fanout(ctx context.Context, note notes.Note, candidateName string, recipientIDs []string) ([]Record, error) {
	recipients := dedupeRecipients(recipientIDs, note.AuthorID)
	if len(recipients) == 0 {
		return nil, nil
	}

	message := buildMessage(note.AuthorName, note.RawText)
	records := make([]Record, 0, len(recipients))
	for _, recipientID := range recipients {
		recordID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opFanout, "id_generation_failed", err, zap.String("note_id", note.ID))
			return records, newServiceError(opFanout, "id_generation_failed", err)
		}

		record := Record{
			ID:            recordID,
			NoteID:        note.ID,
			CandidateID:   note.CandidateID,
			CandidateName: candidateName,
			RecipientID:   recipientID,
			Message:       message,
			CreatedAt:     s.clock().UTC(),
		}
		err = s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "note_id"}, {Name: "recipient_id"}},
				DoNothing: true,
			}).
			Create(&record).Error
		if err != nil {
			s.logError(opFanout, "insert_failed", err,
				zap.String("note_id", note.ID),
				zap.String("recipient_id", recipientID))
			return records, newServiceError(opFanout, "insert_failed", err)
		}

		// Re-read so a prior record for the same identity pushes its
		// canonical id and read flag rather than the discarded insert.
		var canonical Record
		err = s.db.WithContext(ctx).
			Where("note_id = ? AND recipient_id = ?", note.ID, recipientID).
			Take(&canonical).Error
		if err != nil {
			s.logError(opFanout, "reload_failed", err,
				zap.String("note_id", note.ID),
				zap.String("recipient_id", recipientID))
			return records, newServiceError(opFanout, "reload_failed", err)
		}
		records = append(records, canonical)

		if s.publisher != nil {
			if err := s.publisher.PublishNotification(ctx, recipientID, canonical); err != nil {
				s.logError(opFanout, "push_failed", err,
					zap.String("note_id", note.ID),
					zap.String("recipient_id", recipientID))
			}
		}
	}
	return records, nil
}

// List returns every record addressed to the recipient, newest first.
func (s *Service) List(ctx context.Context, recipientID string) ([]Record, error) {
	var records []Record
	if err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC, notification_id DESC").
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("recipient_id", recipientID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// MarkRead flips one record to read. The transition is monotonic and
// idempotent: marking an already-read record succeeds silently. A record
// that does not exist for this recipient yields ErrRecordNotFound.
func (s *Service) MarkRead(ctx context.Context, recordID, recipientID string) error {
	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("notification_id = ? AND recipient_id = ?", recordID, recipientID).
		Update("is_read", true)
	if result.Error != nil {
		s.logError(opMarkRead, "update_failed", result.Error, zap.String("notification_id", recordID))
		return newServiceError(opMarkRead, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// MarkAllRead flips every record unread at call time for the recipient.
// Records arriving after the statement executes are unaffected, and reads
// performed concurrently on another session are never reverted.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if result.Error != nil {
		s.logError(opMarkAllRead, "update_failed", result.Error, zap.String("recipient_id", recipientID))
		return 0, newServiceError(opMarkAllRead, "update_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func dedupeRecipients(recipientIDs []string, authorID string) []string {
	if len(recipientIDs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(recipientIDs))
	deduped := make([]string, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id == "" || id == authorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}

func buildMessage(authorName, rawText string) string {
	snippet := rawText
	if runes := []rune(snippet); len(runes) > maxMessageSnippet {
		snippet = string(runes[:maxMessageSnippet]) + "…"
	}
	return fmt.Sprintf("%s mentioned you: %s", authorName, snippet)
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notifications service error", attrs...)
}
