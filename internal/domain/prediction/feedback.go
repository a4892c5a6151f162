package prediction

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// The six prediction families whose outputs flow through the feedback ledger.
const (
	TypeRisk      = "risk"
	TypeCarrera   = "carrera"
	TypeTendencia = "tendencia"
	TypeProgreso  = "progreso"
	TypeCluster   = "cluster"
	TypeAnomaly   = "anomaly"
)

func KnownType(t string) bool {
	switch t {
	case TypeRisk, TypeCarrera, TypeTendencia, TypeProgreso, TypeCluster, TypeAnomaly:
		return true
	default:
		return false
	}
}

const (
	AccuracyExcellent = "excellent"
	AccuracyGood      = "good"
	AccuracyFair      = "fair"
	AccuracyPoor      = "poor"
)

// Feedback links one prediction event to its eventual ground truth. Rows are
// created pending (actual fields null) and resolved exactly once; a record whose
// ground truth never arrives stays pending forever, since days-to-feedback is
// itself a signal.
type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`

	PredictionType string  `gorm:"column:prediction_type;type:text;not null;index:idx_feedback_type_version,priority:1" json:"prediction_type"`
	PredictedValue string  `gorm:"column:predicted_value;type:text;not null" json:"predicted_value"`
	PredictedScore float64 `gorm:"column:predicted_score;not null;default:0" json:"predicted_score"`
	Confidence     float64 `gorm:"column:confidence;not null;default:0" json:"confidence"`
	ModelVersion   string  `gorm:"column:model_version;type:text;not null;index:idx_feedback_type_version,priority:2" json:"model_version"`

	ActualValue *string  `gorm:"column:actual_value;type:text" json:"actual_value,omitempty"`
	ActualScore *float64 `gorm:"column:actual_score" json:"actual_score,omitempty"`

	// Accuracy fields are only set once ActualValue is populated.
	PredictionCorrect *bool    `gorm:"column:prediction_correct" json:"prediction_correct,omitempty"`
	ErrorMargin       *float64 `gorm:"column:error_margin" json:"error_margin,omitempty"`
	ErrorPercentage   *float64 `gorm:"column:error_percentage" json:"error_percentage,omitempty"`
	AccuracyLevel     string   `gorm:"column:accuracy_level;type:text;index" json:"accuracy_level,omitempty"`

	StudentContext datatypes.JSON `gorm:"type:jsonb;column:student_context" json:"student_context,omitempty"`

	PredictionTimestamp time.Time  `gorm:"column:prediction_timestamp;not null;index" json:"prediction_timestamp"`
	FeedbackTimestamp   *time.Time `gorm:"column:feedback_timestamp;index" json:"feedback_timestamp,omitempty"`
	DaysToFeedback      *int       `gorm:"column:days_to_feedback" json:"days_to_feedback,omitempty"`

	RequiresReview bool   `gorm:"column:requires_review;not null;default:false;index" json:"requires_review"`
	ReviewReason   string `gorm:"column:review_reason;type:text" json:"review_reason,omitempty"`
	Notes          string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Feedback) TableName() string { return "ml_prediction_feedback" }

func (f *Feedback) Resolved() bool { return f.FeedbackTimestamp != nil }
