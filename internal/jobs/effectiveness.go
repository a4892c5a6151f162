package jobs

import (
	"context"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

// effectivenessJob backfills alert effectiveness outcomes.
type effectivenessJob struct {
	tracker services.EffectivenessTracker
}

func NewEffectivenessJob(tracker services.EffectivenessTracker) Handler {
	return &effectivenessJob{tracker: tracker}
}

func (j *effectivenessJob) Type() string { return "alert_effectiveness" }

func (j *effectivenessJob) Run(ctx context.Context) error {
	_, err := j.tracker.Run(ctx)
	return err
}
