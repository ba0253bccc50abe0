package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	streamHeartbeatInterval = 25 * time.Second

	// streamEventSession is the first frame on every stream; it carries the
	// session id the client must quote in room membership calls.
	streamEventSession = "session"
)

type sessionAnnouncement struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// handleStream upgrades the request to a server-sent event stream bound to
// a freshly connected hub session. The session lives exactly as long as the
// request: a dropped connection clears all room memberships, and the client
// re-issues joins after reconnecting.
func (h *httpHandler) handleStream(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	session, err := h.hub.Connect(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer h.hub.Disconnect(session)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	if !h.writeEvent(c, streamEventSession, sessionAnnouncement{
		SessionID: session.ID(),
		UserID:    userID,
	}) {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event := <-session.Events():
			if !event.Valid() {
				h.logger.Warn("stream event rejected",
					zap.String("event_type", string(event.Type)))
				continue
			}
			if !h.writeEvent(c, string(event.Type), event) {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *httpHandler) writeEvent(c *gin.Context, name string, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("stream payload marshal failed", zap.Error(err))
		return false
	}
	if _, err := c.Writer.WriteString("event: " + name + "\ndata: " + string(data) + "\n\n"); err != nil {
		return false
	}
	return true
}
