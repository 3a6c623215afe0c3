package sequences

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type SequenceRepo interface {
	// UpsertByName creates seq or, when a sequence with the same name exists,
	// refreshes its fields and replaces its steps. It reports whether seq was created.
	UpsertByName(dbc dbctx.Context, seq *types.Sequence) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Sequence, error)
	GetByName(dbc dbctx.Context, name string) (*types.Sequence, error)
	List(dbc dbctx.Context) ([]*types.Sequence, error)
	ListActiveByTrigger(dbc dbctx.Context, trigger string) ([]*types.Sequence, error)
	SetActive(dbc dbctx.Context, id uuid.UUID, active bool) error

	CreateTemplate(dbc dbctx.Context, t *types.MessageTemplate) error
	GetTemplate(dbc dbctx.Context, id uuid.UUID) (*types.MessageTemplate, error)
}

type sequenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	repoLog := baseLog.With("repo", "SequenceRepo")
	return &sequenceRepo{db: db, log: repoLog}
}

func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("step_number ASC")
}

func (r *sequenceRepo) UpsertByName(dbc dbctx.Context, seq *types.Sequence) (bool, error) {
	if seq == nil || seq.Name == "" {
		return false, errors.New("sequence requires a name")
	}
	steps := seq.Steps
	created := false
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var existing types.Sequence
		err := tx.Where("name = ?", seq.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seq.Steps = nil
			if err := tx.Create(seq).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			seq.ID = existing.ID
			if err := tx.Model(&types.Sequence{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"description":   seq.Description,
				"trigger_event": seq.TriggerEvent,
				"active":        seq.Active,
			}).Error; err != nil {
				return err
			}
			if err := tx.Where("sequence_id = ?", existing.ID).Delete(&types.SequenceStep{}).Error; err != nil {
				return err
			}
		}
		for i := range steps {
			steps[i].ID = uuid.Nil
			steps[i].SequenceID = seq.ID
			if steps[i].StepNumber == 0 {
				steps[i].StepNumber = i + 1
			}
		}
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		return nil
	})
	seq.Steps = steps
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *sequenceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Sequence, error) {
	var s types.Sequence
	err := dbc.DB(r.db).Preload("Steps", orderedSteps).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sequenceRepo) GetByName(dbc dbctx.Context, name string) (*types.Sequence, error) {
	var s types.Sequence
	err := dbc.DB(r.db).Preload("Steps", orderedSteps).Where("name = ?", name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sequenceRepo) List(dbc dbctx.Context) ([]*types.Sequence, error) {
	var out []*types.Sequence
	if err := dbc.DB(r.db).Preload("Steps", orderedSteps).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sequenceRepo) ListActiveByTrigger(dbc dbctx.Context, trigger string) ([]*types.Sequence, error) {
	var out []*types.Sequence
	if err := dbc.DB(r.db).
		Preload("Steps", orderedSteps).
		Where("trigger_event = ? AND active = ?", trigger, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sequenceRepo) SetActive(dbc dbctx.Context, id uuid.UUID, active bool) error {
	return dbc.DB(r.db).Model(&types.Sequence{}).Where("id = ?", id).Update("active", active).Error
}

func (r *sequenceRepo) CreateTemplate(dbc dbctx.Context, t *types.MessageTemplate) error {
	if t == nil || t.Name == "" {
		return errors.New("template requires a name")
	}
	return dbc.DB(r.db).Create(t).Error
}

func (r *sequenceRepo) GetTemplate(dbc dbctx.Context, id uuid.UUID) (*types.MessageTemplate, error) {
	var t types.MessageTemplate
	err := dbc.DB(r.db).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type EnrollmentRepo interface {
	// EnrollIfAbsent inserts e unless the client already has an active
	// enrollment in the same sequence. It reports whether a row was inserted.
	EnrollIfAbsent(dbc dbctx.Context, e *types.ClientSequenceEnrollment) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ClientSequenceEnrollment, error)
	GetActive(dbc dbctx.Context, clientID, sequenceID uuid.UUID) (*types.ClientSequenceEnrollment, error)
	ListActive(dbc dbctx.Context, limit int) ([]*types.ClientSequenceEnrollment, error)
	ListByClient(dbc dbctx.Context, clientID uuid.UUID) ([]*types.ClientSequenceEnrollment, error)
	// AdvanceStep moves step_completed from expected to expected+1, completing
	// the enrollment when complete is set. It reports false when another
	// writer already advanced the row or it is no longer active.
	AdvanceStep(dbc dbctx.Context, id uuid.UUID, expected int, complete bool, at time.Time) (bool, error)
	SetStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	repoLog := baseLog.With("repo", "EnrollmentRepo")
	return &enrollmentRepo{db: db, log: repoLog}
}

func (r *enrollmentRepo) EnrollIfAbsent(dbc dbctx.Context, e *types.ClientSequenceEnrollment) (bool, error) {
	if e == nil || e.ClientID == uuid.Nil || e.SequenceID == uuid.Nil {
		return false, errors.New("enrollment requires client and sequence ids")
	}
	if e.Status == "" {
		e.Status = types.EnrollmentActive
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now()
	}
	e.EnrolledAt = e.EnrolledAt.UTC()
	// Either partial unique index (active rows, trigger_ref) may reject the row, so no column list.
	res := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ClientSequenceEnrollment, error) {
	var e types.ClientSequenceEnrollment
	err := dbc.DB(r.db).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetActive(dbc dbctx.Context, clientID, sequenceID uuid.UUID) (*types.ClientSequenceEnrollment, error) {
	var e types.ClientSequenceEnrollment
	err := dbc.DB(r.db).
		Where("client_id = ? AND sequence_id = ? AND status = ?", clientID, sequenceID, types.EnrollmentActive).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) ListActive(dbc dbctx.Context, limit int) ([]*types.ClientSequenceEnrollment, error) {
	var out []*types.ClientSequenceEnrollment
	q := dbc.DB(r.db).Where("status = ?", types.EnrollmentActive).Order("enrolled_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByClient(dbc dbctx.Context, clientID uuid.UUID) ([]*types.ClientSequenceEnrollment, error) {
	var out []*types.ClientSequenceEnrollment
	if err := dbc.DB(r.db).Where("client_id = ?", clientID).Order("enrolled_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) AdvanceStep(dbc dbctx.Context, id uuid.UUID, expected int, complete bool, at time.Time) (bool, error) {
	updates := map[string]interface{}{"step_completed": expected + 1}
	if complete {
		at = at.UTC()
		updates["status"] = types.EnrollmentCompleted
		updates["completed_at"] = &at
	}
	res := dbc.DB(r.db).Model(&types.ClientSequenceEnrollment{}).
		Where("id = ? AND status = ? AND step_completed = ?", id, types.EnrollmentActive, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, from []string, to string) (bool, error) {
	q := dbc.DB(r.db).Model(&types.ClientSequenceEnrollment{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	updates := map[string]interface{}{"status": to}
	if to == types.EnrollmentCompleted {
		now := time.Now().UTC()
		updates["completed_at"] = &now
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := dbc.DB(r.db).Model(&types.ClientSequenceEnrollment{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
