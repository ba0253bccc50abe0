// Package candidates provides the thin CRUD surface for candidate records.
// The collaboration core only needs existence checks and display names;
// everything else about a candidate lives outside this service.
package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()

	// ErrCandidateNotFound indicates the referenced candidate is absent.
	ErrCandidateNotFound = errors.New("candidates: candidate not found")
	// ErrInvalidCandidate indicates a create payload failed validation.
	ErrInvalidCandidate = errors.New("candidates: invalid candidate")
)

const (
	opServiceNew = "candidates.service.new"
	opCreate     = "candidates.create"
	opList       = "candidates.list"
	opGet        = "candidates.get"
)

func newServiceError(operation, reason string, cause error) error {
	return fmt.Errorf("%s.%s: %w", operation, reason, cause)
}

// ServiceConfig describes the dependencies for the candidate service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages candidate records.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the candidate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Create validates and stores a new candidate.
func (s *Service) Create(ctx context.Context, name, email string) (Candidate, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return Candidate{}, ErrInvalidCandidate
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Candidate{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	candidate := Candidate{
		ID:        id.String(),
		Name:      name,
		Email:     email,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&candidate).Error; err != nil {
		s.logError(opCreate, "insert_failed", err)
		return Candidate{}, newServiceError(opCreate, "insert_failed", err)
	}
	return candidate, nil
}

// List returns all candidates, newest first.
func (s *Service) List(ctx context.Context) ([]Candidate, error) {
	var records []Candidate
	if err := s.db.WithContext(ctx).Order("created_at DESC, candidate_id DESC").Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, newServiceError(opList, "query_failed", err)
	}
	return records, nil
}

// Get fetches a candidate by identifier.
func (s *Service) Get(ctx context.Context, candidateID string) (Candidate, error) {
	var candidate Candidate
	err := s.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Take(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Candidate{}, ErrCandidateNotFound
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.String("candidate_id", candidateID))
		return Candidate{}, newServiceError(opGet, "query_failed", err)
	}
	return candidate, nil
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
	s.logger.Error("candidates service error", attrs...)
}
