package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
)

type SequenceService interface {
	TriggerEnrollment(ctx context.Context, clientID uuid.UUID, event string, vars map[string]any) (sequences.TriggerResult, error)
	ListEnrollments(ctx context.Context, clientID uuid.UUID) ([]*types.ClientSequenceEnrollment, error)
	Pause(ctx context.Context, enrollmentID uuid.UUID) error
	Resume(ctx context.Context, enrollmentID uuid.UUID) error
	Unenroll(ctx context.Context, enrollmentID uuid.UUID) error
}

type SequenceHandler struct {
	sequences SequenceService
}

func NewSequenceHandler(s SequenceService) *SequenceHandler {
	return &SequenceHandler{sequences: s}
}

type triggerRequest struct {
	Event     string         `json:"event" binding:"required"`
	Variables map[string]any `json:"variables"`
}

func (h *SequenceHandler) Trigger(c *gin.Context) {
	clientID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	res, err := h.sequences.TriggerEnrollment(c.Request.Context(), clientID, req.Event, req.Variables)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if res.Enrolled == nil {
		res.Enrolled = []uuid.UUID{}
	}
	response.RespondOK(c, res)
}

func (h *SequenceHandler) ListEnrollments(c *gin.Context) {
	clientID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	out, err := h.sequences.ListEnrollments(c.Request.Context(), clientID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": out})
}

func (h *SequenceHandler) Pause(c *gin.Context)    { h.transition(c, h.sequences.Pause) }
func (h *SequenceHandler) Resume(c *gin.Context)   { h.transition(c, h.sequences.Resume) }
func (h *SequenceHandler) Unenroll(c *gin.Context) { h.transition(c, h.sequences.Unenroll) }

func (h *SequenceHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) error) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
