package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/modules/journey"
	"github.com/yungbote/coachflow-backend/internal/modules/progress"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
)

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

type fakeJourney struct {
	progress *types.JourneyProgress
	err      error
	last     journey.CompleteStepInput
}

func (f *fakeJourney) Initialize(context.Context, uuid.UUID) (*types.JourneyProgress, error) {
	return f.progress, f.err
}
func (f *fakeJourney) CompleteStep(_ context.Context, in journey.CompleteStepInput) (*types.JourneyProgress, error) {
	f.last = in
	return f.progress, f.err
}
func (f *fakeJourney) GetProgress(context.Context, uuid.UUID) (*types.JourneyProgress, error) {
	return f.progress, f.err
}
func (f *fakeJourney) GetAvailableSteps(context.Context, uuid.UUID) ([]catalog.StepDefinition, error) {
	return nil, f.err
}
func (f *fakeJourney) GetStats(context.Context, uuid.UUID) (journey.Stats, error) {
	return journey.Stats{Completed: 3, Total: 20, Percent: 15}, f.err
}
func (f *fakeJourney) Reset(context.Context, uuid.UUID) (*types.JourneyProgress, error) {
	return f.progress, f.err
}

func journeyRouter(f *fakeJourney) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJourneyHandler(f)
	r := gin.New()
	r.POST("/users/:id/journey/steps/complete", h.CompleteStep)
	r.GET("/users/:id/journey", h.GetProgress)
	r.GET("/users/:id/journey/stats", h.Stats)
	return r
}

func TestJourneyCompleteStep(t *testing.T) {
	userID := uuid.New()
	f := &fakeJourney{progress: &types.JourneyProgress{UserID: userID, CurrentPhase: "fundament", CurrentStep: 2}}
	r := journeyRouter(f)

	rec := do(r, http.MethodPost, "/users/"+userID.String()+"/journey/steps/complete",
		`{"phase":"fundament","step":1,"duration_seconds":90,"response":{"goal":"daten"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, f.last.UserID)
	assert.Equal(t, "fundament", f.last.Phase)
	assert.Equal(t, 1, f.last.Step)
	assert.Equal(t, 90, f.last.DurationSeconds)
	assert.Equal(t, "daten", f.last.Response["goal"])

	f.err = &journey.UnknownStepError{Phase: "x", Step: 9}
	rec = do(r, http.MethodPost, "/users/"+userID.String()+"/journey/steps/complete", `{"phase":"x","step":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_step", errorCode(t, rec))
}

func TestJourneyBadInput(t *testing.T) {
	r := journeyRouter(&fakeJourney{})

	rec := do(r, http.MethodGet, "/users/not-a-uuid/journey", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", errorCode(t, rec))

	rec = do(r, http.MethodPost, "/users/"+uuid.NewString()+"/journey/steps/complete", `{"step":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/users/"+uuid.NewString()+"/journey", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "journey_not_started", errorCode(t, rec))
}

func TestJourneyStats(t *testing.T) {
	rec := do(journeyRouter(&fakeJourney{}), http.MethodGet, "/users/"+uuid.NewString()+"/journey/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats journey.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, 20, stats.Total)
}

type fakeEvents struct {
	err  error
	keep bool
}

func (f *fakeEvents) Track(_ context.Context, in progress.TrackInput) (*types.ProgressEvent, error) {
	if f.err != nil && !f.keep {
		return nil, f.err
	}
	ev := &types.ProgressEvent{ID: uuid.New(), UserID: in.UserID, EventType: in.EventType, Processed: f.err == nil}
	return ev, f.err
}

func (f *fakeEvents) ListEvents(context.Context, uuid.UUID, int) ([]*types.ProgressEvent, error) {
	return nil, nil
}

func TestTrackEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeEvents{}
	r := gin.New()
	r.POST("/events", NewEventHandler(f).Track)
	body := fmt.Sprintf(`{"user_id":%q,"event_type":"goal_completed","payload":{"goal_title":"Eerste date"}}`, uuid.NewString())

	rec := do(r, http.MethodPost, "/events", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":true`)

	f.err, f.keep = errors.New("notifier down"), true
	rec = do(r, http.MethodPost, "/events", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":false`)

	f.err, f.keep = fmt.Errorf("track: %w", pkgerrors.ErrInvalidArgument), false
	rec = do(r, http.MethodPost, "/events", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/events", `{"event_type":"goal_completed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeCron struct {
	res  orchestrator.JobResult
	err  error
	hist []orchestrator.JobResult
}

func (f *fakeCron) TriggerJob(_ context.Context, name string) (orchestrator.JobResult, error) {
	if f.err != nil {
		return orchestrator.JobResult{}, f.err
	}
	r := f.res
	r.Name = name
	return r, nil
}
func (f *fakeCron) History() []orchestrator.JobResult { return f.hist }
func (f *fakeCron) Summary() orchestrator.Summary     { return orchestrator.Summary{TotalRuns: len(f.hist)} }

func TestCronHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := &fakeCron{res: orchestrator.JobResult{Success: true, Processed: 7}}
	h := NewCronHandler(f)
	r := gin.New()
	r.POST("/cron/:cadence", h.Trigger)
	r.GET("/cron/history", h.History)

	rec := do(r, http.MethodPost, "/cron/daily", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":7`)

	f.res.Success = false
	rec = do(r, http.MethodPost, "/cron/daily", "")
	assert.Equal(t, http.StatusMultiStatus, rec.Code)

	f.err = fmt.Errorf("cadence: %w", pkgerrors.ErrInvalidArgument)
	rec = do(r, http.MethodPost, "/cron/yearly", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.err = fmt.Errorf("cadence: %w", pkgerrors.ErrConflict)
	rec = do(r, http.MethodPost, "/cron/daily", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.hist = []orchestrator.JobResult{{Name: "hourly"}, {Name: "daily"}, {Name: "weekly"}}
	rec = do(r, http.MethodGet, "/cron/history?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Runs []orchestrator.JobResult `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Runs, 2)
	assert.Equal(t, "daily", out.Runs[0].Name)
	assert.Equal(t, "weekly", out.Runs[1].Name)
}
