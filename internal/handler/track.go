package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kaglioster-hub/vrabo/infrastructure/logger"
	"github.com/Kaglioster-hub/vrabo/internal/domain"
	"github.com/Kaglioster-hub/vrabo/internal/middleware"
	"github.com/Kaglioster-hub/vrabo/internal/tracker"
)

// Track outcomes reported to the observer.
const (
	TrackRedirected       = "redirected"
	TrackRejected         = "rejected"
	TrackInvalidSignature = "invalid_signature"
	TrackLoop             = "loop"
)

// EventSink accepts track events without blocking. Satisfied by
// *storage.Buffer.
type EventSink interface {
	Send(event domain.TrackEvent) bool
}

// TrackObserver counts track outcomes and dropped events.
type TrackObserver interface {
	ObserveTrack(outcome string)
	ObserveTrackDropped()
}

type nopTrackObserver struct{}

func (nopTrackObserver) ObserveTrack(string)  {}
func (nopTrackObserver) ObserveTrackDropped() {}

// TrackHandler serves GET /api/track.
type TrackHandler struct {
	policy   *tracker.Policy
	sink     EventSink
	logger   logger.Logger
	observer TrackObserver
	now      func() time.Time
}

// NewTrackHandler creates a TrackHandler. observer may be nil.
func NewTrackHandler(
	policy *tracker.Policy,
	sink EventSink,
	log logger.Logger,
	observer TrackObserver,
) *TrackHandler {
	if observer == nil {
		observer = nopTrackObserver{}
	}
	return &TrackHandler{
		policy:   policy,
		sink:     sink,
		logger:   log,
		observer: observer,
		now:      time.Now,
	}
}

// Preflight answers OPTIONS with 204.
func (h *TrackHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Track validates the destination, queues the event and redirects.
func (h *TrackHandler) Track(c *gin.Context) {
	target, err := h.policy.Resolve(tracker.Request{
		URL:       c.Query("url"),
		B64:       c.Query("b64"),
		Signature: c.Query("sig"),
	})

	switch {
	case errors.Is(err, tracker.ErrInvalidSignature):
		h.observer.ObserveTrack(TrackInvalidSignature)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	case errors.Is(err, tracker.ErrLoop):
		h.observer.ObserveTrack(TrackLoop)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Loop detected"})
		return
	case err != nil:
		h.logger.Debug("Track target rejected",
			logger.Error(err),
			logger.String("client_ip", c.ClientIP()),
		)
		h.observer.ObserveTrack(TrackRejected)
		c.Redirect(http.StatusFound, tracker.HomePath)
		return
	}

	h.enqueueEvent(c, target)
	h.observer.ObserveTrack(TrackRedirected)
	c.Redirect(http.StatusFound, target)
}

func (h *TrackHandler) enqueueEvent(c *gin.Context, target string) {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()

	event := domain.TrackEvent{
		ID:        uuid.New(),
		Time:      h.now().UTC(),
		IP:        ip,
		UserAgent: ua,
		UserHash:  tracker.UserHash(ip, ua),
		Referer:   c.Request.Referer(),
		Target:    target,
		Tab:       domain.TruncateLabel(c.Query("tab"), domain.MaxTabLen),
		Title:     domain.TruncateLabel(c.Query("title"), domain.MaxTitleLen),
		Lang:      domain.TruncateLabel(c.Query("lang"), domain.MaxLangLen),
		IsBot:     c.GetBool(middleware.IsBotKey),
	}
	if !h.sink.Send(event) {
		h.observer.ObserveTrackDropped()
		h.logger.Warn("Track event buffer full, dropping event",
			logger.String("event_id", event.ID.String()),
		)
	}
}
