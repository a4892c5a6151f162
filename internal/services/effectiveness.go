package services

import (
	"context"
	"time"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// improvementMargin is the minimum average-progress gain, in progress points,
// required to count an intervention as effective.
const improvementMargin = 0.01

// EffectivenessTracker backfills the student_improved outcome on resolved
// alerts by comparing average progress before and after resolution. The
// outcome is three-valued: nil stays in place when post-resolution data never
// arrives.
type EffectivenessTracker interface {
	Run(ctx context.Context) (checked int, err error)
}

type effectivenessTracker struct {
	alerts monrepos.AlertRepo
	events monrepos.EventRepo
	cfg    EngineConfig
	log    *logger.Logger
}

func NewEffectivenessTracker(alerts monrepos.AlertRepo, events monrepos.EventRepo, cfg EngineConfig, baseLog *logger.Logger) EffectivenessTracker {
	return &effectivenessTracker{
		alerts: alerts,
		events: events,
		cfg:    cfg,
		log:    baseLog.With("service", "EffectivenessTracker"),
	}
}

func (s *effectivenessTracker) Run(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.EffectivenessDelay)
	batch, err := s.alerts.ListForEffectiveness(ctx, nil, cutoff, 200)
	if err != nil {
		return 0, err
	}

	checked := 0
	for _, alert := range batch {
		if alert.ResolvedAt == nil {
			continue
		}
		resolvedAt := *alert.ResolvedAt

		pre, nPre, err := s.events.AvgProgress(ctx, nil, alert.AttemptID, nil, &resolvedAt)
		if err != nil {
			return checked, err
		}
		post, nPost, err := s.events.AvgProgress(ctx, nil, alert.AttemptID, &resolvedAt, nil)
		if err != nil {
			return checked, err
		}

		updates := map[string]interface{}{"effectiveness_checked_at": now}
		switch {
		case nPost == 0 && now.Sub(resolvedAt) < s.cfg.EffectivenessMaxWait:
			// Not enough post-resolution signal yet; retry on a later pass.
			continue
		case nPost == 0 || nPre == 0:
			// Outcome unknowable; student_improved stays nil.
		default:
			improved := post > pre+improvementMargin
			delta := post - pre
			updates["student_improved"] = improved
			updates["improvement_delta"] = delta
		}

		if err := s.alerts.UpdateFields(ctx, nil, alert.ID, updates); err != nil {
			return checked, err
		}
		checked++
	}
	if checked > 0 {
		s.log.Info("alert effectiveness pass finished", "checked", checked)
	}
	return checked, nil
}
