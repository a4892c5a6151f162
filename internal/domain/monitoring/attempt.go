package monitoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
	AttemptAbandoned  = "abandoned"
)

// WorkAttempt is one student's engagement with one assignment or evaluation.
// The running aggregate columns are owned exclusively by the session aggregator;
// grading collaborators only flip Status to graded. Rows are immutable once graded.
type WorkAttempt struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index:idx_work_attempt_student" json:"student_id"`
	ContentID uuid.UUID `gorm:"type:uuid;not null;index:idx_work_attempt_content" json:"content_id"`

	Status string `gorm:"column:status;type:text;not null;default:'in_progress';index" json:"status"`

	// Assignment metadata captured at attempt creation. RetryLimit is frozen here
	// on purpose: later changes to course-level retry defaults never touch an
	// attempt that is already open.
	ExpectedDurationSec int `gorm:"column:expected_duration_sec;not null;default:0" json:"expected_duration_sec"`
	TotalFields         int `gorm:"column:total_fields;not null;default:1" json:"total_fields"`
	RetryLimit          int `gorm:"column:retry_limit;not null;default:0" json:"retry_limit"`
	RetryCount          int `gorm:"column:retry_count;not null;default:0" json:"retry_count"`

	// Running aggregate, recomputed on every applied event.
	TimeOnTaskSec     int64   `gorm:"column:time_on_task_sec;not null;default:0" json:"time_on_task_sec"`
	AnswerChanges     int     `gorm:"column:answer_changes;not null;default:0" json:"answer_changes"`
	MaterialLookups   int     `gorm:"column:material_lookups;not null;default:0" json:"material_lookups"`
	ErrorCount        int     `gorm:"column:error_count;not null;default:0" json:"error_count"`
	RepeatedErrors    int     `gorm:"column:repeated_errors;not null;default:0" json:"repeated_errors"`
	ResponseVelocity  float64 `gorm:"column:response_velocity;not null;default:0" json:"response_velocity"`
	PeakVelocity      float64 `gorm:"column:peak_velocity;not null;default:0" json:"peak_velocity"`
	EstimatedProgress float64 `gorm:"column:estimated_progress;not null;default:0" json:"estimated_progress"`
	DifficultyScore   float64 `gorm:"column:difficulty_score;not null;default:0" json:"difficulty_score"`

	// Latest risk snapshot embedded at computation time. Past events keep their own
	// copies; these columns are only ever the most recent value.
	RiskScore float64 `gorm:"column:risk_score;not null;default:0" json:"risk_score"`
	RiskLevel string  `gorm:"column:risk_level;type:text;not null;default:'bajo'" json:"risk_level"`

	// LastComputedAt is the staleness stamp required by downstream UIs: it tells
	// "engine degraded, stale data" apart from "no risk detected".
	LastEventAt    *time.Time `gorm:"column:last_event_at;index" json:"last_event_at,omitempty"`
	LastComputedAt *time.Time `gorm:"column:last_computed_at" json:"last_computed_at,omitempty"`
	PausedAt       *time.Time `gorm:"column:paused_at" json:"paused_at,omitempty"`
	SubmittedAt    *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WorkAttempt) TableName() string { return "work_attempt" }

// Terminal reports whether the attempt stopped accepting aggregation.
func (a *WorkAttempt) Terminal() bool {
	switch a.Status {
	case AttemptSubmitted, AttemptGraded, AttemptAbandoned:
		return true
	default:
		return false
	}
}
