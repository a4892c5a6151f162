package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type AlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Alert) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Alert, error)
	// GetLatestByAttemptAndType returns the newest alert for the dedup key,
	// terminal or not; nil when none exists.
	GetLatestByAttemptAndType(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, alertType string) (*types.Alert, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Alert) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListActiveByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.Alert, error)
	ListPendingByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Alert, error)
	// ListForEffectiveness returns resolved alerts whose improvement outcome has
	// not been evaluated yet and whose resolution is older than cutoff.
	ListForEffectiveness(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.Alert, error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{db: db, log: baseLog.With("repo", "AlertRepo")}
}

func (r *alertRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Alert) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *alertRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Alert, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var out types.Alert
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *alertRepo) GetLatestByAttemptAndType(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, alertType string) (*types.Alert, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil || alertType == "" {
		return nil, nil
	}
	var out types.Alert
	err := t.WithContext(ctx).
		Where("attempt_id = ? AND type = ?", attemptID, alertType).
		Order("generated_at DESC").
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *alertRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Alert) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Save(row).Error
}

func (r *alertRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Alert{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *alertRepo) ListActiveByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.Alert, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Alert
	if attemptID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("attempt_id = ? AND estado NOT IN ?", attemptID, []string{types.AlertResuelta, types.AlertFalsaAlarma}).
		Order("generated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *alertRepo) ListPendingByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Alert, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Alert
	if studentID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if err := t.WithContext(ctx).
		Where("student_id = ? AND estado IN ?", studentID, []string{types.AlertGenerada, types.AlertNotificada}).
		Order("generated_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *alertRepo) ListForEffectiveness(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) ([]*types.Alert, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Alert
	if err := t.WithContext(ctx).
		Where("resolved_at IS NOT NULL AND effectiveness_checked_at IS NULL AND resolved_at < ?", cutoff).
		Order("resolved_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
