package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/modules/progress"
)

type EventService interface {
	Track(ctx context.Context, in progress.TrackInput) (*types.ProgressEvent, error)
	ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ProgressEvent, error)
}

type EventHandler struct {
	events EventService
}

func NewEventHandler(events EventService) *EventHandler {
	return &EventHandler{events: events}
}

type trackEventRequest struct {
	UserID     uuid.UUID      `json:"user_id" binding:"required"`
	EventType  string         `json:"event_type" binding:"required"`
	Payload    map[string]any `json:"payload"`
	OccurredAt *time.Time     `json:"occurred_at"`
}

// Track stores the event and runs its handler. When the handler fails the
// event is kept for the hourly retry and 202 is returned.
func (h *EventHandler) Track(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
	var req trackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	in := progress.TrackInput{UserID: req.UserID, EventType: req.EventType, Payload: req.Payload}
	if req.OccurredAt != nil {
		in.OccurredAt = req.OccurredAt.UTC()
	}
	ev, err := h.events.Track(c.Request.Context(), in)
	if ev == nil {
		response.RespondErr(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusAccepted, gin.H{"event": ev, "processed": false, "error": err.Error()})
		return
	}
	response.RespondOK(c, gin.H{"event": ev, "processed": ev.Processed})
}

func (h *EventHandler) List(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	evs, err := h.events.ListEvents(c.Request.Context(), userID, limitQuery(c, 50, 500))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": evs})
}
