package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/modules/journey"
	"github.com/yungbote/coachflow-backend/internal/pkg/apierr"
)

var errJourneyNotStarted = errors.New("journey not started")

type JourneyService interface {
	Initialize(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error)
	CompleteStep(ctx context.Context, in journey.CompleteStepInput) (*types.JourneyProgress, error)
	GetProgress(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error)
	GetAvailableSteps(ctx context.Context, userID uuid.UUID) ([]catalog.StepDefinition, error)
	GetStats(ctx context.Context, userID uuid.UUID) (journey.Stats, error)
	Reset(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error)
}

type JourneyHandler struct {
	journey JourneyService
}

func NewJourneyHandler(j JourneyService) *JourneyHandler {
	return &JourneyHandler{journey: j}
}

func (h *JourneyHandler) Initialize(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.journey.Initialize(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

type completeStepRequest struct {
	Phase           string         `json:"phase" binding:"required"`
	Step            int            `json:"step" binding:"required"`
	Response        map[string]any `json:"response"`
	DurationSeconds int            `json:"duration_seconds"`
}

func (h *JourneyHandler) CompleteStep(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req completeStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	p, err := h.journey.CompleteStep(c.Request.Context(), journey.CompleteStepInput{
		UserID:          userID,
		Phase:           req.Phase,
		Step:            req.Step,
		Response:        req.Response,
		DurationSeconds: req.DurationSeconds,
	})
	var unknown *journey.UnknownStepError
	if errors.As(err, &unknown) {
		response.RespondErr(c, apierr.BadRequest("unknown_step", err))
		return
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

func (h *JourneyHandler) GetProgress(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.journey.GetProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if p == nil {
		response.RespondErr(c, apierr.NotFound("journey_not_started", errJourneyNotStarted))
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

func (h *JourneyHandler) AvailableSteps(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	steps, err := h.journey.GetAvailableSteps(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"steps": steps})
}

func (h *JourneyHandler) Stats(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.journey.GetStats(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, stats)
}

func (h *JourneyHandler) Reset(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.journey.Reset(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}
