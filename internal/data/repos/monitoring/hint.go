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

type HintRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Hint) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Hint, error)
	Update(ctx context.Context, tx *gorm.DB, row *types.Hint) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// LastByAttemptTypeTopic returns the newest hint for the adaptive ladder key.
	LastByAttemptTypeTopic(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, hintType, topic string) (*types.Hint, error)
	ContentExists(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, topic, contentHash string) (bool, error)
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.Hint, error)
	ListPendingByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Hint, error)
}

type hintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHintRepo(db *gorm.DB, baseLog *logger.Logger) HintRepo {
	return &hintRepo{db: db, log: baseLog.With("repo", "HintRepo")}
}

func (r *hintRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Hint) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *hintRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Hint, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var out types.Hint
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *hintRepo) Update(ctx context.Context, tx *gorm.DB, row *types.Hint) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Save(row).Error
}

func (r *hintRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Hint{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *hintRepo) LastByAttemptTypeTopic(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, hintType, topic string) (*types.Hint, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil || hintType == "" {
		return nil, nil
	}
	q := t.WithContext(ctx).
		Where("attempt_id = ? AND type = ?", attemptID, hintType)
	if topic != "" {
		q = q.Where("topic = ?", topic)
	}
	var out types.Hint
	err := q.Order("created_at DESC").First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *hintRepo) ContentExists(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, topic, contentHash string) (bool, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if attemptID == uuid.Nil || contentHash == "" {
		return false, nil
	}
	var n int64
	if err := t.WithContext(ctx).
		Model(&types.Hint{}).
		Where("attempt_id = ? AND topic = ? AND content_hash = ?", attemptID, topic, contentHash).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *hintRepo) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID) ([]*types.Hint, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Hint
	if attemptID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *hintRepo) ListPendingByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.Hint, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Hint
	if studentID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 5
	}
	if err := t.WithContext(ctx).
		Where("student_id = ? AND estado = ? AND visible = ?", studentID, types.HintGenerada, true).
		Order("relevance DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
