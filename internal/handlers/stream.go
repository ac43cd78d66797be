package handlers

import (
	"io"
	"time"

	"campusdesk/internal/apperr"
	"campusdesk/internal/authz"
	"campusdesk/internal/realtime"

	"github.com/gin-gonic/gin"
)

// StreamHandler forwards change events to the browser over server-sent
// events, so dashboards refresh without polling.
type StreamHandler struct {
	pub       *realtime.Publisher
	keepalive time.Duration
}

func NewStreamHandler(pub *realtime.Publisher) *StreamHandler {
	return &StreamHandler{pub: pub, keepalive: 25 * time.Second}
}

// Stream serves GET /api/stream/:topic. Leave and gate pass events are
// private: callers who cannot decide leaves only see their own.
func (h *StreamHandler) Stream(c *gin.Context) {
	topic, ok := realtime.ParseTopic(c.Param("topic"))
	if !ok {
		respondError(c, apperr.NotFound("unknown topic"))
		return
	}
	if !h.pub.Enabled() {
		respondError(c, apperr.Transient("live updates are unavailable", nil))
		return
	}

	user := currentUser(c)
	seeAll := topic == realtime.TopicPosts || authz.AllowedActions(user.Role)[authz.ActionDecideLeave]

	ctx := c.Request.Context()
	events, stop, err := h.pub.Subscribe(ctx, topic)
	if err != nil {
		respondError(c, apperr.Transient("subscribe to live updates", err))
		return
	}
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"topic": topic})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if seeAll || ev.UserID == user.ID {
				c.SSEvent(ev.Type, ev)
			}
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
