package monitoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	HintGenerada   = "generada"
	HintMostrada   = "mostrada"
	HintUtilizada  = "utilizada"
	HintIgnorada   = "ignorada"
	HintNoEfectiva = "no_efectiva"
)

const (
	HintSocratico   = "hint_socratico"
	HintConcepto    = "concepto"
	HintEjemplo     = "ejemplo"
	HintRecurso     = "recurso"
	HintMotivacion  = "motivacion"
	HintOrientacion = "orientacion"
	HintValidacion  = "validacion"
)

// Guidance levels for Socratic hints: 1 is fully guided, 5 is fully open-ended.
const (
	GuidanceMin     = 1
	GuidanceMax     = 5
	GuidanceDefault = 3
)

var hintTransitions = map[string][]string{
	HintGenerada: {HintMostrada},
	HintMostrada: {HintUtilizada, HintIgnorada, HintNoEfectiva},
	// utilizada, ignorada and no_efectiva are terminal.
}

func CanTransitionHint(from, to string) bool {
	for _, next := range hintTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func HintTerminal(estado string) bool {
	switch estado {
	case HintUtilizada, HintIgnorada, HintNoEfectiva:
		return true
	default:
		return false
	}
}

// Hint is a scaffolding suggestion offered to a student. Teacher oversight can
// hide a hint retroactively but the record is never deleted.
type Hint struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AttemptID uuid.UUID `gorm:"type:uuid;not null;index" json:"attempt_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`

	Type  string `gorm:"column:type;type:text;not null;index" json:"type"`
	Topic string `gorm:"column:topic;type:text;not null;index" json:"topic"`

	Content   string `gorm:"column:content;type:text;not null" json:"content"`
	Reasoning string `gorm:"column:reasoning;type:text" json:"reasoning,omitempty"`

	// ContentHash deduplicates hint content per (attempt, topic).
	ContentHash string `gorm:"column:content_hash;type:text;not null;index" json:"-"`

	GuidanceLevel int `gorm:"column:guidance_level;not null;default:0" json:"guidance_level,omitempty"`

	Relevance   float64 `gorm:"column:relevance;not null;default:0" json:"relevance"`
	Difficulty  float64 `gorm:"column:difficulty;not null;default:0" json:"difficulty"`
	Specificity float64 `gorm:"column:specificity;not null;default:0" json:"specificity"`

	Estado string `gorm:"column:estado;type:text;not null;default:'generada';index" json:"estado"`

	// Visible=false is a teacher-oversight downgrade; the row stays for audit.
	Visible    bool       `gorm:"column:visible;not null;default:true" json:"visible"`
	ReviewedBy *uuid.UUID `gorm:"type:uuid;column:reviewed_by" json:"reviewed_by,omitempty"`

	GuideQuestions datatypes.JSON `gorm:"type:jsonb;column:guide_questions" json:"guide_questions,omitempty"`

	ShownAt     *time.Time `gorm:"column:shown_at" json:"shown_at,omitempty"`
	RespondedAt *time.Time `gorm:"column:responded_at" json:"responded_at,omitempty"`
	Effective   *bool      `gorm:"column:effective" json:"effective,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Hint) TableName() string { return "student_hint" }
