package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/modules/badges"
)

type BadgeService interface {
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]badges.EarnedBadge, error)
	GetBadgeProgress(ctx context.Context, userID uuid.UUID) ([]badges.BadgeProgress, error)
	CheckAndAward(ctx context.Context, userID uuid.UUID) ([]catalog.BadgeDefinition, error)
	TotalPoints(ctx context.Context, userID uuid.UUID) (int, error)
}

type BadgeHandler struct {
	badges BadgeService
}

func NewBadgeHandler(b BadgeService) *BadgeHandler {
	return &BadgeHandler{badges: b}
}

func (h *BadgeHandler) List(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	earned, err := h.badges.ListUserBadges(ctx, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	points, err := h.badges.TotalPoints(ctx, userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"badges": earned, "total_points": points})
}

func (h *BadgeHandler) Progress(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.badges.GetBadgeProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"badges": progress})
}

func (h *BadgeHandler) Check(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	awarded, err := h.badges.CheckAndAward(c.Request.Context(), userID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if awarded == nil {
		awarded = []catalog.BadgeDefinition{}
	}
	response.RespondOK(c, gin.H{"awarded": awarded})
}
