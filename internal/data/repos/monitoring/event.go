package monitoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type EventRepo interface {
	// CreateIgnoreDuplicates inserts an event, relying on the (attempt_id,
	// client_event_id) unique index. Returns false when the event was a replay.
	CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, row *types.MonitoringEvent) (bool, error)
	UpdateSnapshot(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.MonitoringEvent, error)
	ListRecentByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, limit int) ([]*types.MonitoringEvent, error)
	AvgProgress(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, from, to *time.Time) (avg float64, n int64, err error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, row *types.MonitoringEvent) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return false, nil
	}
	res := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "client_event_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *eventRepo) UpdateSnapshot(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(ctx).
		Model(&types.MonitoringEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *eventRepo) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.MonitoringEvent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.MonitoringEvent
	if attemptID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("occurred_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) ListRecentByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, limit int) ([]*types.MonitoringEvent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.MonitoringEvent
	if attemptID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) AvgProgress(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, from, to *time.Time) (float64, int64, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil {
		return 0, 0, nil
	}
	q := t.WithContext(ctx).
		Model(&types.MonitoringEvent{}).
		Where("attempt_id = ?", attemptID)
	if from != nil {
		q = q.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("occurred_at < ?", *to)
	}
	var row struct {
		Avg float64
		N   int64
	}
	if err := q.Select("COALESCE(AVG(progress), 0) AS avg, COUNT(*) AS n").Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Avg, row.N, nil
}

type DeadLetterRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.DeadLetterEvent) error
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DeadLetterEvent, error)
}

type deadLetterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeadLetterRepo(db *gorm.DB, baseLog *logger.Logger) DeadLetterRepo {
	return &deadLetterRepo{db: db, log: baseLog.With("repo", "DeadLetterRepo")}
}

func (r *deadLetterRepo) Create(ctx context.Context, tx *gorm.DB, row *types.DeadLetterEvent) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *deadLetterRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.DeadLetterEvent, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.DeadLetterEvent
	if err := t.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
