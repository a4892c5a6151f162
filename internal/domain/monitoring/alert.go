package monitoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Alert states. The source schema stored these as open-ended strings; here the
// set is closed and every change goes through the transition table.
const (
	AlertGenerada    = "generada"
	AlertNotificada  = "notificada"
	AlertIntervenida = "intervenida"
	AlertResuelta    = "resuelta"
	AlertFalsaAlarma = "falsa_alarma"
)

const (
	SeverityBaja    = "baja"
	SeverityMedia   = "media"
	SeverityAlta    = "alta"
	SeverityCritica = "critica"
)

const (
	AlertRiesgoAbandono         = "riesgo_abandono"
	AlertBajoProgreso           = "bajo_progreso"
	AlertDificultadConceptual   = "dificultad_conceptual"
	AlertPatronesError          = "patrones_error"
	AlertDesempenoInconsistente = "desempeno_inconsistente"
	AlertInactividad            = "inactividad"
)

var alertTransitions = map[string][]string{
	AlertGenerada:    {AlertNotificada, AlertFalsaAlarma},
	AlertNotificada:  {AlertIntervenida, AlertResuelta, AlertFalsaAlarma},
	AlertIntervenida: {AlertResuelta, AlertFalsaAlarma},
	// resuelta and falsa_alarma are terminal.
}

// CanTransitionAlert reports whether estado from -> to is in the transition table.
func CanTransitionAlert(from, to string) bool {
	for _, next := range alertTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AlertTerminal reports whether estado admits no further transitions.
func AlertTerminal(estado string) bool {
	return estado == AlertResuelta || estado == AlertFalsaAlarma
}

// Alert is a stateful record keyed by (attempt, type). At most one active alert
// per key exists at a time; the orchestrator enforces that with a per-key guard.
type Alert struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AttemptID uuid.UUID `gorm:"type:uuid;not null;index:idx_alert_attempt_type,priority:1" json:"attempt_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`

	// Optional back-reference to the monitoring event that triggered the alert.
	// Nullable: alerts raised by sweep jobs have no single triggering event.
	MonitoringEventID *uuid.UUID `gorm:"type:uuid;column:monitoring_event_id;index" json:"monitoring_event_id,omitempty"`

	Type           string         `gorm:"column:type;type:text;not null;index:idx_alert_attempt_type,priority:2" json:"type"`
	Severity       string         `gorm:"column:severity;type:text;not null;default:'media'" json:"severity"`
	Confidence     float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	Message        string         `gorm:"column:message;type:text;not null" json:"message"`
	Recommendation string         `gorm:"column:recommendation;type:text" json:"recommendation"`
	TriggerMetrics datatypes.JSON `gorm:"type:jsonb;column:trigger_metrics" json:"trigger_metrics,omitempty"`

	Estado string `gorm:"column:estado;type:text;not null;default:'generada';index" json:"estado"`

	// Consecutive recomputations below medio while the alert is open.
	LowStreak int `gorm:"column:low_streak;not null;default:0" json:"low_streak"`

	GeneratedAt  time.Time  `gorm:"column:generated_at;not null;index" json:"generated_at"`
	NotifiedAt   *time.Time `gorm:"column:notified_at" json:"notified_at,omitempty"`
	IntervenedAt *time.Time `gorm:"column:intervened_at" json:"intervened_at,omitempty"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at;index" json:"resolved_at,omitempty"`

	TeacherID     *uuid.UUID `gorm:"type:uuid;column:teacher_id" json:"teacher_id,omitempty"`
	TeacherAction string     `gorm:"column:teacher_action;type:text" json:"teacher_action,omitempty"`

	// Three-valued effectiveness: nil until the backfill job has enough post-alert
	// data to decide, then true/false. EffectivenessCheckedAt records the pass.
	StudentImproved        *bool      `gorm:"column:student_improved" json:"student_improved,omitempty"`
	ImprovementDelta       *float64   `gorm:"column:improvement_delta" json:"improvement_delta,omitempty"`
	EffectivenessCheckedAt *time.Time `gorm:"column:effectiveness_checked_at" json:"effectiveness_checked_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Alert) TableName() string { return "student_alert" }

func (a *Alert) Active() bool { return !AlertTerminal(a.Estado) }
