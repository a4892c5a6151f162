package prediction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// TypeStats is the per-(prediction type, model version) accuracy rollup exposed
// for model governance.
type TypeStats struct {
	PredictionType string  `json:"prediction_type"`
	ModelVersion   string  `json:"model_version"`
	Total          int64   `json:"total_predictions"`
	Resolved       int64   `json:"resolved"`
	Correct        int64   `json:"correct"`
	AccuracyRate   float64 `json:"accuracy_rate"`
	AvgError       float64 `json:"avg_error_percentage"`
	AvgConfidence  float64 `json:"avg_confidence"`
	NeedsReview    int64   `json:"needs_review"`
}

type FeedbackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Feedback) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Feedback, error)
	// ResolveOnce applies resolution fields iff the record is still pending.
	// Returns ErrAlreadyResolved when a concurrent or earlier resolve won.
	ResolveOnce(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Feedback, error)
	ListPendingByStudentAndType(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, predictionType string) ([]*types.Feedback, error)
	ListNeedsReview(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Feedback, error)
	Stats(ctx context.Context, tx *gorm.DB, predictionType, modelVersion string) ([]TypeStats, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Feedback) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(ctx).Create(row).Error
}

func (r *feedbackRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Feedback, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrNotFound
	}
	var out types.Feedback
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// The pending check and the write are one UPDATE so concurrent ground-truth
// sources cannot both resolve the same record.
func (r *feedbackRepo) ResolveOnce(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return pkgerrors.ErrNotFound
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := t.WithContext(ctx).
		Model(&types.Feedback{}).
		Where("id = ? AND feedback_timestamp IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := t.WithContext(ctx).
			Model(&types.Feedback{}).
			Where("id = ?", id).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return pkgerrors.ErrNotFound
		}
		return pkgerrors.ErrAlreadyResolved
	}
	return nil
}

func (r *feedbackRepo) ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Feedback, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*types.Feedback
	if err := t.WithContext(ctx).
		Where("feedback_timestamp IS NULL").
		Order("prediction_timestamp ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepo) ListPendingByStudentAndType(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, predictionType string) ([]*types.Feedback, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*types.Feedback
	if studentID == uuid.Nil || predictionType == "" {
		return out, nil
	}
	if err := t.WithContext(ctx).
		Where("student_id = ? AND prediction_type = ? AND feedback_timestamp IS NULL", studentID, predictionType).
		Order("prediction_timestamp ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepo) ListNeedsReview(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Feedback, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.Feedback
	if err := t.WithContext(ctx).
		Where("requires_review = ?", true).
		Order("feedback_timestamp DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *feedbackRepo) Stats(ctx context.Context, tx *gorm.DB, predictionType, modelVersion string) ([]TypeStats, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(ctx).
		Model(&types.Feedback{}).
		Select(`prediction_type,
			model_version,
			COUNT(*) AS total,
			COUNT(feedback_timestamp) AS resolved,
			COALESCE(SUM(CASE WHEN prediction_correct THEN 1 ELSE 0 END), 0) AS correct,
			COALESCE(AVG(error_percentage), 0) AS avg_error,
			COALESCE(AVG(confidence), 0) AS avg_confidence,
			COALESCE(SUM(CASE WHEN requires_review THEN 1 ELSE 0 END), 0) AS needs_review`).
		Group("prediction_type, model_version")
	if predictionType != "" {
		q = q.Where("prediction_type = ?", predictionType)
	}
	if modelVersion != "" {
		q = q.Where("model_version = ?", modelVersion)
	}
	var rows []TypeStats
	if err := q.Order("prediction_type, model_version").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Resolved > 0 {
			rows[i].AccuracyRate = float64(rows[i].Correct) / float64(rows[i].Resolved) * 100
		}
	}
	return rows, nil
}
