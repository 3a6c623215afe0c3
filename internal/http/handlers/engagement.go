package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/pkg/apierr"
)

type EngagementService interface {
	ScheduleDaily(ctx context.Context, userID uuid.UUID) (engagement.ScheduleResult, error)
	ScheduleWeeklyReflection(ctx context.Context, userID uuid.UUID) (engagement.ScheduleResult, error)
	RecordActivity(ctx context.Context, in engagement.RecordActivityInput) (*types.UserStreak, error)
}

type EngagementHandler struct {
	engagement EngagementService
}

func NewEngagementHandler(e EngagementService) *EngagementHandler {
	return &EngagementHandler{engagement: e}
}

type scheduleRequest struct {
	// Cadence is "daily" (default) or "weekly".
	Cadence string `json:"cadence"`
}

func (h *EngagementHandler) Schedule(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req scheduleRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	var (
		res engagement.ScheduleResult
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Cadence)) {
	case "", "daily":
		res, err = h.engagement.ScheduleDaily(c.Request.Context(), userID)
	case "weekly":
		res, err = h.engagement.ScheduleWeeklyReflection(c.Request.Context(), userID)
	default:
		response.RespondErr(c, apierr.BadRequest("invalid_cadence", fmt.Errorf("unknown schedule cadence %q", req.Cadence)))
		return
	}
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

type activityRequest struct {
	ActivityType string         `json:"activity_type" binding:"required"`
	Metadata     map[string]any `json:"metadata"`
	OccurredAt   *time.Time     `json:"occurred_at"`
}

func (h *EngagementHandler) RecordActivity(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	in := engagement.RecordActivityInput{UserID: userID, ActivityType: req.ActivityType, Metadata: req.Metadata}
	if req.OccurredAt != nil {
		in.OccurredAt = req.OccurredAt.UTC()
	}
	streak, err := h.engagement.RecordActivity(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"streak": streak})
}
