package services

import (
	"fmt"
	"math"
	"time"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// ModelOutput is an external prediction attached to a scoring request. The
// engine treats the producing model as a black box and only blends its score.
type ModelOutput struct {
	PredictionType string  `json:"prediction_type"`
	Value          string  `json:"value"`
	Score          float64 `json:"score"`
	Confidence     float64 `json:"confidence"`
	ModelVersion   string  `json:"model_version"`
}

// RiskScorer turns attempt aggregates into a risk snapshot. Score is pure:
// same attempt state and model output always give the same snapshot (modulo
// the computed-at stamp), which keeps it trivially testable.
type RiskScorer interface {
	Score(attempt *types.WorkAttempt, model *ModelOutput) types.RiskSnapshot
	LevelFor(score float64) string
}

type riskScorer struct {
	cfg EngineConfig
	log *logger.Logger
}

func NewRiskScorer(cfg EngineConfig, baseLog *logger.Logger) RiskScorer {
	return &riskScorer{cfg: cfg, log: baseLog.With("service", "RiskScorer")}
}

func (s *riskScorer) LevelFor(score float64) string {
	return s.cfg.Thresholds.LevelFor(score)
}

func (s *riskScorer) Score(attempt *types.WorkAttempt, model *ModelOutput) types.RiskSnapshot {
	snap := types.RiskSnapshot{
		AttemptID:  attempt.ID,
		StudentID:  attempt.StudentID,
		ContentID:  attempt.ContentID,
		ComputedAt: time.Now().UTC(),
	}

	if attempt.Status == types.AttemptAbandoned {
		snap.Indicators = []types.Indicator{{
			Code:   types.IndicatorAbandon,
			Value:  1,
			Weight: 1,
			Detail: "intento abandonado",
		}}
		snap.BehavioralScore = 1
	} else {
		snap.Indicators = s.indicators(attempt)
		raw := 0.0
		for _, ind := range snap.Indicators {
			raw += ind.Weight * ind.Value
		}
		snap.BehavioralScore = squash(raw)
	}

	snap.Score = snap.BehavioralScore
	if model != nil {
		ms := clamp01(model.Score)
		snap.ModelScore = &ms
		snap.Score = s.cfg.BlendWeight*snap.BehavioralScore + (1-s.cfg.BlendWeight)*ms
	}
	snap.Score = clamp01(snap.Score)
	snap.Level = s.cfg.Thresholds.LevelFor(snap.Score)
	return snap
}

// indicators evaluates each behavioral signal in [0,1]. Zero-valued signals
// are still emitted so downstream consumers see the full vector.
func (s *riskScorer) indicators(a *types.WorkAttempt) []types.Indicator {
	w := s.cfg.Weights
	out := make([]types.Indicator, 0, 6)

	// Time spent beyond the expected duration, saturating at double.
	excess := 0.0
	if a.ExpectedDurationSec > 0 {
		ratio := float64(a.TimeOnTaskSec) / float64(a.ExpectedDurationSec)
		if ratio > 1 {
			excess = clamp01(ratio - 1)
		}
	}
	out = append(out, types.Indicator{
		Code: types.IndicatorExcessTime, Value: excess, Weight: w.ExcessTime,
		Detail: fmt.Sprintf("tiempo %ds de %ds esperados", a.TimeOnTaskSec, a.ExpectedDurationSec),
	})

	// Little progress despite significant time on task.
	lowProgress := 0.0
	if a.ExpectedDurationSec > 0 && float64(a.TimeOnTaskSec) >= 0.5*float64(a.ExpectedDurationSec) {
		lowProgress = clamp01(1 - a.EstimatedProgress)
	}
	out = append(out, types.Indicator{
		Code: types.IndicatorLowProgress, Value: lowProgress, Weight: w.LowProgress,
		Detail: fmt.Sprintf("progreso %.0f%%", a.EstimatedProgress*100),
	})

	// Current velocity well below the attempt's own peak.
	declining := 0.0
	if a.PeakVelocity > 0 {
		ratio := a.ResponseVelocity / a.PeakVelocity
		if ratio < 0.5 {
			declining = clamp01(1 - ratio/0.5)
		}
	}
	out = append(out, types.Indicator{
		Code: types.IndicatorDecliningVelocity, Value: declining, Weight: w.DecliningVelocity,
		Detail: fmt.Sprintf("velocidad %.2f vs pico %.2f", a.ResponseVelocity, a.PeakVelocity),
	})

	// Rewriting the same answers over and over.
	loops := 0.0
	if a.AnswerChanges > a.TotalFields {
		loops = clamp01(float64(a.AnswerChanges-a.TotalFields) / float64(maxInt(a.TotalFields, 1)*2))
	}
	out = append(out, types.Indicator{
		Code: types.IndicatorCorrectionLoop, Value: loops, Weight: w.CorrectionLoops,
		Detail: fmt.Sprintf("%d cambios sobre %d campos", a.AnswerChanges, a.TotalFields),
	})

	// Frequent material lookups relative to answers produced.
	dependency := clamp01(float64(a.MaterialLookups) / float64(maxInt(a.TotalFields, 1)*2))
	out = append(out, types.Indicator{
		Code: types.IndicatorResourceDependency, Value: dependency, Weight: w.ResourceDependency,
		Detail: fmt.Sprintf("%d consultas de material", a.MaterialLookups),
	})

	// Same mistake recurring across recent events.
	repeated := clamp01(float64(a.RepeatedErrors) / 3)
	out = append(out, types.Indicator{
		Code: types.IndicatorRepeatedErrors, Value: repeated, Weight: w.RepeatedErrors,
		Detail: fmt.Sprintf("%d errores repetidos", a.RepeatedErrors),
	})

	return out
}

// squash maps the weighted indicator sum onto (0,1) with a logistic centered
// at 0.35, so a mid-weight combination of signals already lands near medio
// while a clean attempt stays firmly bajo.
func squash(raw float64) float64 {
	return 1 / (1 + math.Exp(-8*(raw-0.35)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
