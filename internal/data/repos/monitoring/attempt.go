package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.WorkAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.WorkAttempt) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.WorkAttempt, error)
	ListInProgressIdleSince(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.WorkAttempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, row *types.WorkAttempt) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *attemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.WorkAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var out types.WorkAttempt
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *attemptRepo) Update(ctx context.Context, tx *gorm.DB, row *types.WorkAttempt) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Save(row).Error
}

func (r *attemptRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(ctx).
		Model(&types.WorkAttempt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *attemptRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.WorkAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.WorkAttempt
	if studentID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attemptRepo) ListInProgressIdleSince(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]*types.WorkAttempt, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.WorkAttempt
	if err := t.WithContext(ctx).
		Where("status = ? AND last_event_at IS NOT NULL AND last_event_at < ?", types.AttemptInProgress, cutoff).
		Order("last_event_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
