// Package server wires the HTTP surface: login, directory, candidate CRUD,
// note threads with mention fan-out, notification read-state and the SSE
// realtime stream with explicit room membership control.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/candidhq/collab/backend/internal/candidates"
	"github.com/candidhq/collab/backend/internal/directory"
	"github.com/candidhq/collab/backend/internal/mention"
	"github.com/candidhq/collab/backend/internal/notes"
	"github.com/candidhq/collab/backend/internal/notifications"
	"github.com/candidhq/collab/backend/internal/realtime"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "collab_user_id"

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingDirectory     = errors.New("directory service dependency required")
	errMissingCandidates    = errors.New("candidate service dependency required")
	errMissingNotes         = errors.New("note service dependency required")
	errMissingNotifications = errors.New("notification service dependency required")
	errMissingHub           = errors.New("realtime hub dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// BackendTokenManager issues and validates backend session tokens.
type BackendTokenManager interface {
	IssueToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies collects the services the HTTP handler fronts.
type Dependencies struct {
	TokenManager  BackendTokenManager
	Directory     *directory.Service
	Candidates    *candidates.Service
	Notes         *notes.Service
	Notifications *notifications.Service
	Hub           *realtime.Hub
	Logger        *zap.Logger
}

// NewHTTPHandler builds the gin router for the collaboration API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Directory == nil {
		return nil, errMissingDirectory
	}
	if deps.Candidates == nil {
		return nil, errMissingCandidates
	}
	if deps.Notes == nil {
		return nil, errMissingNotes
	}
	if deps.Notifications == nil {
		return nil, errMissingNotifications
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:        deps.TokenManager,
		directory:     deps.Directory,
		candidates:    deps.Candidates,
		notes:         deps.Notes,
		notifications: deps.Notifications,
		hub:           deps.Hub,
		logger:        logger,
	}

	router.POST("/api/auth/login", handler.handleLogin)

	protected := router.Group("/api")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/users", handler.handleListUsers)
	protected.GET("/candidates", handler.handleListCandidates)
	protected.POST("/candidates", handler.handleCreateCandidate)
	protected.GET("/candidates/:id", handler.handleGetCandidate)
	protected.GET("/candidates/:id/notes", handler.handleListNotes)
	protected.POST("/candidates/:id/notes", handler.handleCreateNote)
	protected.GET("/notifications", handler.handleListNotifications)
	protected.PATCH("/notifications/:id/read", handler.handleMarkRead)
	protected.POST("/notifications/read-all", handler.handleMarkAllRead)
	protected.GET("/stream", handler.handleStream)
	protected.POST("/rooms/join", handler.handleJoinRoom)
	protected.POST("/rooms/leave", handler.handleLeaveRoom)

	return router, nil
}

type httpHandler struct {
	tokens        BackendTokenManager
	directory     *directory.Service
	candidates    *candidates.Service
	notes         *notes.Service
	notifications *notifications.Service
	hub           *realtime.Hub
	logger        *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, err := extractToken(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

// extractToken reads the bearer header, falling back to the access_token
// query parameter for EventSource clients that cannot set headers.
func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			return token, nil
		}
	}
	if token := strings.TrimSpace(c.Query("access_token")); token != "" {
		return token, nil
	}
	return "", errInvalidAuthorization
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
	TokenType   string         `json:"token_type"`
	User        directory.User `json:"user"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.directory.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		if !errors.Is(err, directory.ErrInvalidCredentials) {
			h.logger.Error("login failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		User:        user,
	})
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	users, err := h.directory.ListMentionableUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type candidateRequestPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *httpHandler) handleListCandidates(c *gin.Context) {
	records, err := h.candidates.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleCreateCandidate(c *gin.Context) {
	var request candidateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	candidate, err := h.candidates.Create(c.Request.Context(), request.Name, request.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

func (h *httpHandler) handleGetCandidate(c *gin.Context) {
	candidate, err := h.candidates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	candidateID, err := notes.NewCandidateID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	records, err := h.notes.List(c.Request.Context(), candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type noteRequestPayload struct {
	Content string `json:"content"`
}

// handleCreateNote is the write path of the collaboration core: persist the
// note, resolve its mention set, fan out one notification per mentioned
// user, then broadcast the note to the candidate's room.
func (h *httpHandler) handleCreateNote(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request noteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	candidateID, err := notes.NewCandidateID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	authorID, err := notes.NewAuthorID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	candidate, err := h.candidates.Get(ctx, candidateID.String())
	if err != nil {
		respondError(c, err)
		return
	}
	author, err := h.directory.GetUser(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	note, err := h.notes.Create(ctx, notes.CreateRequest{
		CandidateID: candidateID,
		AuthorID:    authorID,
		AuthorName:  author.DisplayName,
		RawText:     request.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.fanOutMentions(ctx, note, candidate.Name)
	if err := h.hub.PublishNote(ctx, candidateID.String(), note); err != nil {
		h.logger.Warn("room publish failed", zap.String("note_id", note.ID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, note)
}

// fanOutMentions resolves mention tags against the directory and hands the
// recipient set to the notification service. A directory failure degrades
// to no notifications; the stored note is unaffected.
func (h *httpHandler) fanOutMentions(ctx context.Context, note notes.Note, candidateName string) {
	tokens := mention.Extract(note.RawText)
	if len(tokens) == 0 {
		return
	}
	users, err := h.directory.ListMentionableUsers(ctx)
	if err != nil {
		h.logger.Warn("mention resolution skipped, directory unavailable",
			zap.String("note_id", note.ID), zap.Error(err))
		return
	}
	recipients := mention.Resolve(tokens, users)
	if len(recipients) == 0 {
		return
	}
	if _, err := h.notifications.Fanout(ctx, note, candidateName, recipients); err != nil {
		h.logger.Error("notification fan-out failed",
			zap.String("note_id", note.ID), zap.Error(err))
	}
}

func (h *httpHandler) handleListNotifications(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	records, err := h.notifications.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isRead": true})
}

func (h *httpHandler) handleMarkAllRead(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type roomRequestPayload struct {
	SessionID   string `json:"session_id"`
	CandidateID string `json:"candidate_id"`
}

func (h *httpHandler) handleJoinRoom(c *gin.Context) {
	session, ok := h.bindRoomRequest(c)
	if !ok {
		return
	}
	if err := h.hub.JoinRoom(session.CandidateID, session.SessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": session.CandidateID})
}

func (h *httpHandler) handleLeaveRoom(c *gin.Context) {
	session, ok := h.bindRoomRequest(c)
	if !ok {
		return
	}
	if err := h.hub.LeaveRoom(session.CandidateID, session.SessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"left": session.CandidateID})
}

// bindRoomRequest validates a membership call and ensures the session
// belongs to the authenticated user.
func (h *httpHandler) bindRoomRequest(c *gin.Context) (roomRequestPayload, bool) {
	userID := c.GetString(userIDContextKey)

	var request roomRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil ||
		request.SessionID == "" || request.CandidateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return roomRequestPayload{}, false
	}

	owner, ok := h.hub.SessionOwner(request.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return roomRequestPayload{}, false
	}
	if owner != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return roomRequestPayload{}, false
	}
	return request, true
}
