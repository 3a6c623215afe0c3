package sequences

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const DefaultBatchLimit = 500

type UsecasesDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Catalog *catalog.Catalog

	Users       repos.UserRepo
	Sequences   repos.SequenceRepo
	Enrollments repos.EnrollmentRepo
	Messaging   messaging.Usecases
	Pool        *worker.Pool

	BatchLimit int
	Now        func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "sequences")
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(deps.Log, 1)
	}
	if deps.BatchLimit <= 0 {
		deps.BatchLimit = DefaultBatchLimit
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type TriggerResult struct {
	Enrolled []uuid.UUID `json:"enrolled"`
	Skipped  int         `json:"skipped"`
}

// TriggerEnrollment enrolls the client in every active sequence listening for
// event. Sequences the client is already actively enrolled in are skipped.
func (u Usecases) TriggerEnrollment(ctx context.Context, clientID uuid.UUID, event string, vars map[string]any) (TriggerResult, error) {
	return u.TriggerEnrollmentRef(ctx, clientID, event, "", vars)
}

// TriggerEnrollmentRef is TriggerEnrollment keyed by the occurrence that caused
// it. A ref that already enrolled the client in a sequence is skipped for that
// sequence even after the enrollment has completed or been paused.
func (u Usecases) TriggerEnrollmentRef(ctx context.Context, clientID uuid.UUID, event, ref string, vars map[string]any) (TriggerResult, error) {
	var out TriggerResult
	if clientID == uuid.Nil || event == "" {
		return out, fmt.Errorf("trigger enrollment: %w", pkgerrors.ErrInvalidArgument)
	}
	dbc := dbctx.Of(ctx)
	seqs, err := u.deps.Sequences.ListActiveByTrigger(dbc, event)
	if err != nil {
		return out, fmt.Errorf("list sequences for %s: %w", event, err)
	}
	raw, err := encodeVariables(vars)
	if err != nil {
		return out, err
	}
	for _, seq := range seqs {
		e := &types.ClientSequenceEnrollment{
			ClientID:     clientID,
			SequenceID:   seq.ID,
			Status:       types.EnrollmentActive,
			EnrolledAt:   u.deps.Now(),
			TriggerEvent: event,
			Variables:    raw,
		}
		if ref != "" {
			r := ref
			e.TriggerRef = &r
		}
		inserted, err := u.deps.Enrollments.EnrollIfAbsent(dbc, e)
		if err != nil {
			return out, fmt.Errorf("enroll in %q: %w", seq.Name, err)
		}
		if !inserted {
			out.Skipped++
			continue
		}
		out.Enrolled = append(out.Enrolled, seq.ID)
		u.deps.Log.Info("Client enrolled", "client_id", clientID, "sequence", seq.Name, "trigger", event)
	}
	return out, nil
}

func (u Usecases) ListEnrollments(ctx context.Context, clientID uuid.UUID) ([]*types.ClientSequenceEnrollment, error) {
	return u.deps.Enrollments.ListByClient(dbctx.Of(ctx), clientID)
}

func (u Usecases) ListSequences(ctx context.Context) ([]*types.Sequence, error) {
	return u.deps.Sequences.List(dbctx.Of(ctx))
}

// Pause stops step processing for an active enrollment.
func (u Usecases) Pause(ctx context.Context, enrollmentID uuid.UUID) error {
	return u.transition(ctx, enrollmentID, []string{types.EnrollmentActive}, types.EnrollmentPaused)
}

func (u Usecases) Resume(ctx context.Context, enrollmentID uuid.UUID) error {
	return u.transition(ctx, enrollmentID, []string{types.EnrollmentPaused}, types.EnrollmentActive)
}

// Unenroll ends the enrollment without sending the remaining steps.
func (u Usecases) Unenroll(ctx context.Context, enrollmentID uuid.UUID) error {
	return u.transition(ctx, enrollmentID, []string{types.EnrollmentActive, types.EnrollmentPaused}, types.EnrollmentCompleted)
}

func (u Usecases) transition(ctx context.Context, id uuid.UUID, from []string, to string) error {
	dbc := dbctx.Of(ctx)
	ok, err := u.deps.Enrollments.SetStatus(dbc, id, from, to)
	if err != nil {
		return fmt.Errorf("enrollment %s -> %s: %w", id, to, err)
	}
	if ok {
		return nil
	}
	e, err := u.deps.Enrollments.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("enrollment %s: %w", id, pkgerrors.ErrNotFound)
	}
	if e.Status == to {
		return nil
	}
	return fmt.Errorf("enrollment %s is %s: %w", id, e.Status, pkgerrors.ErrInvalidArgument)
}

type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SeedPredefined installs the catalog's sequences, refreshing existing ones by name.
func (u Usecases) SeedPredefined(ctx context.Context) (SeedResult, error) {
	var out SeedResult
	dbc := dbctx.Of(ctx)
	for _, s := range u.deps.Catalog.SequenceSeeds() {
		seq := &types.Sequence{
			Name:         s.Name,
			Description:  s.Description,
			TriggerEvent: s.Trigger,
			Active:       true,
		}
		for i, st := range s.Steps {
			seq.Steps = append(seq.Steps, types.SequenceStep{
				StepNumber: i + 1,
				DelayDays:  st.DelayDays,
				DelayHours: st.DelayHours,
				Channel:    st.Channel,
				Subject:    st.Subject,
				Content:    st.Content,
			})
		}
		created, err := u.deps.Sequences.UpsertByName(dbc, seq)
		if err != nil {
			return out, fmt.Errorf("seed sequence %q: %w", s.Name, err)
		}
		if created {
			out.Created++
		} else {
			out.Updated++
		}
	}
	u.deps.Log.Info("Sequences seeded", "created", out.Created, "updated", out.Updated)
	return out, nil
}
