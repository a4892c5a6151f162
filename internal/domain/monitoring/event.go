package monitoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventSessionStart   = "inicio_sesion"
	EventAnswerWritten  = "respuesta_escrita"
	EventMaterialLookup = "consulta_material"
	EventAnswerChanged  = "cambio_respuesta"
	EventPause          = "pausa"
	EventResume         = "reanudacion"
	EventSubmit         = "entrega"
	EventAbandon        = "abandono"
)

// KnownEventKind rejects malformed payloads at the boundary.
func KnownEventKind(kind string) bool {
	switch kind {
	case EventSessionStart, EventAnswerWritten, EventMaterialLookup,
		EventAnswerChanged, EventPause, EventResume, EventSubmit, EventAbandon:
		return true
	default:
		return false
	}
}

// MonitoringEvent is an immutable, append-only fact: the engine's only input
// signal. Rows are never updated or deleted. ClientEventID is the upstream
// capture layer's idempotency key, unique per attempt, so at-least-once delivery
// never double-counts.
type MonitoringEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AttemptID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_event_attempt_client,priority:1" json:"attempt_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	ContentID uuid.UUID `gorm:"type:uuid;not null;index" json:"content_id"`

	ClientEventID string `gorm:"column:client_event_id;not null;uniqueIndex:idx_event_attempt_client,priority:2" json:"client_event_id"`

	Kind        string    `gorm:"column:kind;type:text;not null;index" json:"kind"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	DurationSec int       `gorm:"column:duration_sec;not null;default:0" json:"duration_sec"`

	Context       datatypes.JSON `gorm:"type:jsonb;column:context" json:"context,omitempty"`
	CognitiveLoad datatypes.JSON `gorm:"type:jsonb;column:cognitive_load" json:"cognitive_load,omitempty"`

	// Attempt state embedded at computation time; never retroactively altered.
	Progress   float64        `gorm:"column:progress;not null;default:0" json:"progress"`
	RiskScore  float64        `gorm:"column:risk_score;not null;default:0" json:"risk_score"`
	RiskLevel  string         `gorm:"column:risk_level;type:text;not null;default:'bajo'" json:"risk_level"`
	Indicators datatypes.JSON `gorm:"type:jsonb;column:indicators" json:"indicators,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (MonitoringEvent) TableName() string { return "monitoring_event" }

// DeadLetterEvent keeps events that referenced an unknown attempt. They are
// recorded rather than dropped so upstream delivery bugs stay observable.
type DeadLetterEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AttemptID uuid.UUID      `gorm:"type:uuid;not null;index" json:"attempt_id"`
	StudentID uuid.UUID      `gorm:"type:uuid;index" json:"student_id"`
	Kind      string         `gorm:"column:kind;type:text;not null" json:"kind"`
	Reason    string         `gorm:"column:reason;type:text;not null" json:"reason"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (DeadLetterEvent) TableName() string { return "dead_letter_event" }
