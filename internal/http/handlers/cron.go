package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coachflow-backend/internal/http/response"
	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
)

type CronRunner interface {
	TriggerJob(ctx context.Context, name string) (orchestrator.JobResult, error)
	History() []orchestrator.JobResult
	Summary() orchestrator.Summary
}

type CronHandler struct {
	cron CronRunner
}

func NewCronHandler(r CronRunner) *CronHandler {
	return &CronHandler{cron: r}
}

// Trigger runs the cadence synchronously. A run that finished with failed
// sub-tasks answers 207 so callers can tell it apart from a clean run.
func (h *CronHandler) Trigger(c *gin.Context) {
	res, err := h.cron.TriggerJob(c.Request.Context(), c.Param("cadence"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

func (h *CronHandler) Summary(c *gin.Context) {
	response.RespondOK(c, h.cron.Summary())
}

func (h *CronHandler) History(c *gin.Context) {
	hist := h.cron.History()
	if n := limitQuery(c, len(hist), len(hist)); n < len(hist) {
		hist = hist[len(hist)-n:]
	}
	if hist == nil {
		hist = []orchestrator.JobResult{}
	}
	response.RespondOK(c, gin.H{"runs": hist})
}
