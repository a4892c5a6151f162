package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	predrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/prediction"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

const highConfidence = 0.8

// RecordPredictionInput captures one model output at emission time.
type RecordPredictionInput struct {
	StudentID      uuid.UUID      `json:"student_id"`
	PredictionType string         `json:"prediction_type"`
	PredictedValue string         `json:"predicted_value"`
	PredictedScore float64        `json:"predicted_score"`
	Confidence     float64        `json:"confidence"`
	ModelVersion   string         `json:"model_version"`
	StudentContext map[string]any `json:"student_context,omitempty"`
	PredictedAt    time.Time      `json:"predicted_at"`
}

// Calibrator is the prediction feedback ledger. Predictions are recorded
// pending and resolved exactly once against observed ground truth; the
// accuracy strategy is chosen by prediction type.
type Calibrator interface {
	// Record stores a pending feedback record. Unknown prediction types fail
	// fast with ErrUnknownPredictionType so a bad record never sits in the
	// ledger unresolvable.
	Record(ctx context.Context, in RecordPredictionInput) (*types.Feedback, error)
	// Resolve attaches the ground truth and grades the prediction. A second
	// resolve of the same record returns ErrAlreadyResolved.
	Resolve(ctx context.Context, id uuid.UUID, actual types.Observation) (*types.Feedback, error)
	ReviewQueue(ctx context.Context, limit int) ([]*types.Feedback, error)
	Pending(ctx context.Context, limit int) ([]*types.Feedback, error)
	PendingByStudent(ctx context.Context, studentID uuid.UUID, predictionType string) ([]*types.Feedback, error)
	Stats(ctx context.Context, predictionType, modelVersion string) ([]predrepos.TypeStats, error)
}

type calibrator struct {
	feedback predrepos.FeedbackRepo
	log      *logger.Logger
}

func NewCalibrator(feedback predrepos.FeedbackRepo, baseLog *logger.Logger) Calibrator {
	return &calibrator{feedback: feedback, log: baseLog.With("service", "Calibrator")}
}

func (s *calibrator) Record(ctx context.Context, in RecordPredictionInput) (*types.Feedback, error) {
	if in.StudentID == uuid.Nil || in.ModelVersion == "" {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if !types.KnownType(in.PredictionType) {
		return nil, pkgerrors.ErrUnknownPredictionType
	}
	if in.PredictedAt.IsZero() {
		in.PredictedAt = time.Now().UTC()
	}

	row := &types.Feedback{
		ID:                  uuid.New(),
		StudentID:           in.StudentID,
		PredictionType:      in.PredictionType,
		PredictedValue:      in.PredictedValue,
		PredictedScore:      in.PredictedScore,
		Confidence:          clamp01(in.Confidence),
		ModelVersion:        in.ModelVersion,
		PredictionTimestamp: in.PredictedAt.UTC(),
	}
	if in.StudentContext != nil {
		row.StudentContext = mustJSON(in.StudentContext)
	}
	if err := s.feedback.Create(ctx, nil, row); err != nil {
		return nil, err
	}
	s.log.Debug("prediction recorded",
		"feedback_id", row.ID, "type", row.PredictionType, "model_version", row.ModelVersion)
	return row, nil
}

func (s *calibrator) Resolve(ctx context.Context, id uuid.UUID, actual types.Observation) (*types.Feedback, error) {
	row, err := s.feedback.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if row.Resolved() {
		return nil, pkgerrors.ErrAlreadyResolved
	}

	cmp, ok := types.ComparatorFor(row.PredictionType)
	if !ok {
		// Record-time validation makes this unreachable for rows created here;
		// guard anyway for rows migrated from elsewhere.
		return nil, pkgerrors.ErrUnknownPredictionType
	}
	outcome := cmp(row.PredictedValue, row.PredictedScore, actual)

	now := time.Now().UTC()
	days := int(now.Sub(row.PredictionTimestamp).Hours() / 24)
	if days < 0 {
		days = 0
	}

	requiresReview := false
	reviewReason := ""
	if outcome.AccuracyLevel == types.AccuracyPoor {
		requiresReview = true
		reviewReason = "precision pobre"
	} else if row.Confidence >= highConfidence && !outcome.Correct {
		requiresReview = true
		reviewReason = "alta confianza con resultado incorrecto"
	}

	updates := map[string]interface{}{
		"actual_value":       actual.Value,
		"actual_score":       actual.Score,
		"prediction_correct": outcome.Correct,
		"error_margin":       outcome.ErrorMargin,
		"error_percentage":   outcome.ErrorPercentage,
		"accuracy_level":     outcome.AccuracyLevel,
		"feedback_timestamp": now,
		"days_to_feedback":   days,
		"requires_review":    requiresReview,
		"review_reason":      reviewReason,
	}
	if err := s.feedback.ResolveOnce(ctx, nil, id, updates); err != nil {
		return nil, err
	}

	resolved, err := s.feedback.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("prediction resolved",
		"feedback_id", id, "type", resolved.PredictionType,
		"accuracy", outcome.AccuracyLevel, "correct", outcome.Correct,
		"requires_review", requiresReview)
	return resolved, nil
}

func (s *calibrator) ReviewQueue(ctx context.Context, limit int) ([]*types.Feedback, error) {
	return s.feedback.ListNeedsReview(ctx, nil, limit)
}

func (s *calibrator) Pending(ctx context.Context, limit int) ([]*types.Feedback, error) {
	return s.feedback.ListPending(ctx, nil, limit)
}

func (s *calibrator) PendingByStudent(ctx context.Context, studentID uuid.UUID, predictionType string) ([]*types.Feedback, error) {
	if !types.KnownType(predictionType) {
		return nil, pkgerrors.ErrUnknownPredictionType
	}
	return s.feedback.ListPendingByStudentAndType(ctx, nil, studentID, predictionType)
}

func (s *calibrator) Stats(ctx context.Context, predictionType, modelVersion string) ([]predrepos.TypeStats, error) {
	return s.feedback.Stats(ctx, nil, predictionType, modelVersion)
}
