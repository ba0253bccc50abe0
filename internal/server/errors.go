package server

import (
	"errors"
	"net/http"

	"github.com/candidhq/collab/backend/internal/candidates"
	"github.com/candidhq/collab/backend/internal/directory"
	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
	"github.com/candidhq/collab/backend/internal/realtime"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto the HTTP taxonomy: Unauthorized (401,
// surfaced to clients as a redirect-to-login directive), NotFound (404),
// ValidationError (400) and everything else as a 500 with a generic message.
// Duplicate mark-read and duplicate joins never reach here; they are
// treated as success upstream.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, directory.ErrInvalidCredentials):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, candidates.ErrCandidateNotFound):
		return http.StatusNotFound, "candidate not found"
	case errors.Is(err, directory.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, notifications.ErrRecordNotFound):
		return http.StatusNotFound, "notification not found"
	case errors.Is(err, realtime.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, notes.ErrEmptyNote):
		return http.StatusBadRequest, "note text is empty"
	case errors.Is(err, notes.ErrInvalidCandidateID), errors.Is(err, notes.ErrInvalidAuthorID):
		return http.StatusBadRequest, "invalid identifier"
	case errors.Is(err, candidates.ErrInvalidCandidate):
		return http.StatusBadRequest, "invalid candidate"
	case errors.Is(err, directory.ErrInvalidUser):
		return http.StatusBadRequest, "invalid user"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)
	c.JSON(status, gin.H{"error": message})
}
