package messaging

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type MessageRepo interface {
	// CreateIfAbsent inserts m unless a message with the same dedupe key exists.
	// Messages without a dedupe key are always inserted.
	CreateIfAbsent(dbc dbctx.Context, m *types.Message) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	GetByDedupeKey(dbc dbctx.Context, key string) (*types.Message, error)
	ListByClient(dbc dbctx.Context, clientID uuid.UUID, limit int) ([]*types.Message, error)
	ListDueScheduled(dbc dbctx.Context, now time.Time, limit int) ([]*types.Message, error)
	MarkSent(dbc dbctx.Context, id uuid.UUID, providerID string, cost float64, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error
	CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (r *messageRepo) CreateIfAbsent(dbc dbctx.Context, m *types.Message) (bool, error) {
	if m == nil || m.ClientID == uuid.Nil {
		return false, errors.New("message requires a client id")
	}
	if m.Status == "" {
		m.Status = messaging.MessageDraft
	}
	q := dbc.DB(r.db)
	if m.DedupeKey != nil {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		})
	}
	res := q.Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	var m types.Message
	err := dbc.DB(r.db).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) GetByDedupeKey(dbc dbctx.Context, key string) (*types.Message, error) {
	var m types.Message
	err := dbc.DB(r.db).Where("dedupe_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) ListByClient(dbc dbctx.Context, clientID uuid.UUID, limit int) ([]*types.Message, error) {
	var out []*types.Message
	q := dbc.DB(r.db).Where("client_id = ?", clientID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListDueScheduled(dbc dbctx.Context, now time.Time, limit int) ([]*types.Message, error) {
	var out []*types.Message
	q := dbc.DB(r.db).
		Where("status = ? AND scheduled_for <= ?", messaging.MessageScheduled, now.UTC()).
		Order("scheduled_for ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) MarkSent(dbc dbctx.Context, id uuid.UUID, providerID string, cost float64, at time.Time) error {
	at = at.UTC()
	return dbc.DB(r.db).Model(&types.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      messaging.MessageSent,
		"provider_id": providerID,
		"cost":        cost,
		"sent_at":     &at,
		"error":       "",
	}).Error
}

func (r *messageRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error {
	return dbc.DB(r.db).Model(&types.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": messaging.MessageFailed,
		"error":  reason,
	}).Error
}

func (r *messageRepo) CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := dbc.DB(r.db).Model(&types.Message{}).
		Select("status, COUNT(*) AS n").
		Where("created_at >= ?", since.UTC()).
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

type NotificationRepo interface {
	CreateIfAbsent(dbc dbctx.Context, n *types.Notification) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error)
	MarkRead(dbc dbctx.Context, userID, id uuid.UUID, at time.Time) (bool, error)
	DeleteReadBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
	DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	repoLog := baseLog.With("repo", "NotificationRepo")
	return &notificationRepo{db: db, log: repoLog}
}

func (r *notificationRepo) CreateIfAbsent(dbc dbctx.Context, n *types.Notification) (bool, error) {
	if n == nil || n.UserID == uuid.Nil {
		return false, errors.New("notification requires a user id")
	}
	if n.Priority == "" {
		n.Priority = messaging.PriorityNormal
	}
	q := dbc.DB(r.db)
	if n.DedupeKey != nil {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		})
	}
	res := q.Create(n)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*types.Notification, error) {
	var out []*types.Notification
	q := dbc.DB(r.db).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(dbc dbctx.Context, userID, id uuid.UUID, at time.Time) (bool, error) {
	at = at.UTC()
	res := dbc.DB(r.db).Model(&types.Notification{}).
		Where("id = ? AND user_id = ? AND read = ?", id, userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) DeleteReadBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("read = ? AND read_at < ?", true, cutoff.UTC()).
		Delete(&types.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) DeleteExpired(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("expires_at IS NOT NULL AND expires_at < ?", now.UTC()).
		Delete(&types.Notification{})
	return res.RowsAffected, res.Error
}
