package monitoring

import (
	"time"

	"github.com/google/uuid"
)

const (
	RiskBajo    = "bajo"
	RiskMedio   = "medio"
	RiskAlto    = "alto"
	RiskCritico = "critico"
)

// Indicator is one behavioral signal that contributed to a risk score.
type Indicator struct {
	Code   string  `json:"code"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// Indicator codes emitted by the risk scorer.
const (
	IndicatorExcessTime         = "tiempo_excesivo"
	IndicatorLowProgress        = "bajo_progreso_tiempo_alto"
	IndicatorAbandon            = "abandono"
	IndicatorDecliningVelocity  = "velocidad_declinante"
	IndicatorCorrectionLoop     = "ciclo_correcciones"
	IndicatorResourceDependency = "dependencia_recursos"
	IndicatorRepeatedErrors     = "errores_repetidos"
)

// RiskSnapshot is a derived, immutable value: computed per qualifying event,
// embedded on the attempt and the event, and published on the snapshot bus.
// It is never persisted as its own mutable entity.
type RiskSnapshot struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	StudentID uuid.UUID `json:"student_id"`
	ContentID uuid.UUID `json:"content_id"`

	// EventID points at the monitoring event whose application produced this
	// snapshot; nil for sweep-driven recomputations.
	EventID *uuid.UUID `json:"event_id,omitempty"`

	Score           float64     `json:"score"`
	Level           string      `json:"level"`
	BehavioralScore float64     `json:"behavioral_score"`
	ModelScore      *float64    `json:"model_score,omitempty"`
	Indicators      []Indicator `json:"indicators,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// Dominant returns the highest weighted contribution, used by the alert
// orchestrator to choose an alert type.
func (s RiskSnapshot) Dominant() (Indicator, bool) {
	var best Indicator
	found := false
	for _, ind := range s.Indicators {
		if !found || ind.Weight*ind.Value > best.Weight*best.Value {
			best = ind
			found = true
		}
	}
	return best, found
}
