package app

import (
	"gorm.io/gorm"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/jobs"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/realtime"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type Services struct {
	Scorer        services.RiskScorer
	Aggregator    services.SessionAggregator
	Alerts        services.AlertOrchestrator
	Hints         services.HintGenerator
	Calibrator    services.Calibrator
	Effectiveness services.EffectivenessTracker
	JobWorker     *jobs.Worker
}

// wireServices builds the service graph. The alert orchestrator and hint
// generator subscribe to the snapshot hub, so every applied event flows
// through scoring into alerting and hint generation in order.
func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *realtime.Hub) (Services, error) {
	log.Info("Wiring services...")

	scorer := services.NewRiskScorer(cfg.Engine, log)
	aggregator := services.NewSessionAggregator(
		db, r.Attempt, r.Event, r.DeadLetter, scorer, hub, cfg.Engine, log)
	alerts := services.NewAlertOrchestrator(r.Alert, cfg.Engine, log)
	hints := services.NewHintGenerator(r.Hint, r.Attempt, cfg.Engine, log)
	calibrator := services.NewCalibrator(r.Feedback, log)
	effectiveness := services.NewEffectivenessTracker(r.Alert, r.Event, cfg.Engine, log)

	hub.Subscribe(alerts.OnSnapshot)
	hub.Subscribe(hints.OnSnapshot)

	registry := jobs.NewRegistry()
	if err := registry.Register(jobs.NewEffectivenessJob(effectiveness)); err != nil {
		return Services{}, err
	}
	if err := registry.Register(jobs.NewStaleSweepJob(r.Attempt, aggregator, cfg.Engine, log)); err != nil {
		return Services{}, err
	}
	worker := jobs.NewWorker(registry, cfg.Engine.RecomputeInterval, log)

	return Services{
		Scorer:        scorer,
		Aggregator:    aggregator,
		Alerts:        alerts,
		Hints:         hints,
		Calibrator:    calibrator,
		Effectiveness: effectiveness,
		JobWorker:     worker,
	}, nil
}
