package jobs

import (
	"context"
	"errors"
	"time"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
)

// staleSweepJob finds in-progress attempts without recent events, rescores
// them so their staleness stamp moves, and synthesizes an abandon event once
// the idle window passes. The synthetic event goes through the aggregator
// like any other, with a deterministic client event id so repeated sweeps
// stay idempotent.
type staleSweepJob struct {
	attempts   monrepos.AttemptRepo
	aggregator services.SessionAggregator
	cfg        services.EngineConfig
	log        *logger.Logger
}

func NewStaleSweepJob(attempts monrepos.AttemptRepo, aggregator services.SessionAggregator, cfg services.EngineConfig, baseLog *logger.Logger) Handler {
	return &staleSweepJob{
		attempts:   attempts,
		aggregator: aggregator,
		cfg:        cfg,
		log:        baseLog.With("job", "stale_sweep"),
	}
}

func (j *staleSweepJob) Type() string { return "stale_sweep" }

func (j *staleSweepJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-j.cfg.RecomputeInterval)
	idle, err := j.attempts.ListInProgressIdleSince(ctx, nil, cutoff)
	if err != nil {
		return err
	}

	for _, attempt := range idle {
		if attempt.LastEventAt != nil && now.Sub(*attempt.LastEventAt) >= j.cfg.AbandonAfter {
			_, err := j.aggregator.Apply(ctx, services.EventInput{
				AttemptID:     attempt.ID,
				StudentID:     attempt.StudentID,
				ContentID:     attempt.ContentID,
				ClientEventID: "sweep-abandon-" + attempt.ID.String(),
				Kind:          types.EventAbandon,
				OccurredAt:    now,
			})
			if err != nil && !errors.Is(err, pkgerrors.ErrMissingAttempt) {
				j.log.Error("abandon synthesis failed", "attempt_id", attempt.ID, "error", err)
			}
			continue
		}
		if _, err := j.aggregator.Recompute(ctx, attempt.ID); err != nil {
			j.log.Error("stale recompute failed", "attempt_id", attempt.ID, "error", err)
		}
	}
	return nil
}
