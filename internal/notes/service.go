// Package notes stores the append-only annotations reviewers attach to a
// candidate. Notes are created once and never edited; the mention text is
// persisted raw and resolved downstream.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/candidhq/collab/backend/internal/candidates"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingCandidates = errors.New("candidate lookup is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "notes.service.new"
	opCreate     = "notes.create"
	opList       = "notes.list"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// CandidateLookup is the slice of the candidate service notes depend on.
type CandidateLookup interface {
	Get(ctx context.Context, candidateID string) (candidates.Candidate, error)
}

// IDProvider issues note identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies for the note service.
type ServiceConfig struct {
	Database   *gorm.DB
	Candidates CandidateLookup
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service persists and lists candidate notes.
type Service struct {
	db         *gorm.DB
	candidates CandidateLookup
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the note service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Candidates == nil {
		return nil, newServiceError(opServiceNew, "missing_candidates", errMissingCandidates)
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
		candidates: cfg.Candidates,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CreateRequest carries the author's submission.
type CreateRequest struct {
	CandidateID CandidateID
	AuthorID    AuthorID
	AuthorName  string
	RawText     string
}

// Create validates and persists one note. Whitespace-only text counts as
// empty and is rejected before any storage call; an absent candidate
// surfaces candidates.ErrCandidateNotFound.
func (s *Service) Create(ctx context.Context, request CreateRequest) (Note, error) {
	trimmed := strings.TrimSpace(request.RawText)
	if trimmed == "" {
		return Note{}, ErrEmptyNote
	}

	if _, err := s.candidates.Get(ctx, request.CandidateID.String()); err != nil {
		if errors.Is(err, candidates.ErrCandidateNotFound) {
			return Note{}, err
		}
		s.logError(opCreate, "candidate_lookup_failed", err,
			zap.String("candidate_id", request.CandidateID.String()))
		return Note{}, newServiceError(opCreate, "candidate_lookup_failed", err)
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Note{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	note := Note{
		ID:          noteID,
		CandidateID: request.CandidateID.String(),
		AuthorID:    request.AuthorID.String(),
		AuthorName:  request.AuthorName,
		RawText:     trimmed,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "insert_failed", err,
			zap.String("candidate_id", request.CandidateID.String()),
			zap.String("note_id", noteID))
		return Note{}, newServiceError(opCreate, "insert_failed", err)
	}
	return note, nil
}

// List returns all notes for a candidate ordered by creation time ascending.
func (s *Service) List(ctx context.Context, candidateID CandidateID) ([]Note, error) {
	if _, err := s.candidates.Get(ctx, candidateID.String()); err != nil {
		if errors.Is(err, candidates.ErrCandidateNotFound) {
			return nil, err
		}
		s.logError(opList, "candidate_lookup_failed", err,
			zap.String("candidate_id", candidateID.String()))
		return nil, newServiceError(opList, "candidate_lookup_failed", err)
	}

	var records []Note
	if err := s.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID.String()).
		Order("created_at ASC, note_id ASC").
		Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("candidate_id", candidateID.String()))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
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
	s.logger.Error("notes service error", attrs...)
}
