package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidCandidateID indicates a candidate identifier is empty or exceeds storage bounds.
	ErrInvalidCandidateID = errors.New("notes: invalid candidate id")
	// ErrInvalidAuthorID indicates an author identifier is empty or exceeds storage bounds.
	ErrInvalidAuthorID = errors.New("notes: invalid author id")
	// ErrEmptyNote indicates note text is empty after trimming whitespace.
	ErrEmptyNote = errors.New("notes: note text is empty")
)

// CandidateID represents a validated candidate identifier.
type CandidateID string

// NewCandidateID validates raw input and returns a CandidateID.
func NewCandidateID(rawInput string) (CandidateID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCandidateID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidCandidateID, maxIdentifierLength)
	}
	return CandidateID(trimmed), nil
}

// String returns the underlying string identifier.
func (id CandidateID) String() string {
	return string(id)
}

// AuthorID represents a validated author identifier.
type AuthorID string

// NewAuthorID validates raw input and returns an AuthorID.
func NewAuthorID(rawInput string) (AuthorID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAuthorID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAuthorID, maxIdentifierLength)
	}
	return AuthorID(trimmed), nil
}

// String returns the underlying string identifier.
func (id AuthorID) String() string {
	return string(id)
}

// Note is one append-only annotation on a candidate's thread. RawText keeps
// mention tags as typed; resolution happens at render and fan-out time, not
// at rest.
type Note struct {
	ID          string    `gorm:"column:note_id;primaryKey;size:190;not null" json:"id"`
	CandidateID string    `gorm:"column:candidate_id;size:190;not null;index:idx_notes_candidate_created,priority:1" json:"candidateId"`
	AuthorID    string    `gorm:"column:author_id;size:190;not null" json:"authorId"`
	AuthorName  string    `gorm:"column:author_name;size:320;not null" json:"authorName"`
	RawText     string    `gorm:"column:raw_text;type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index:idx_notes_candidate_created,priority:2" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}
