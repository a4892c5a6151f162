package app

import (
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/handlers"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type Handlers struct {
	Attempt  *handlers.AttemptHandler
	Event    *handlers.EventHandler
	Alert    *handlers.AlertHandler
	Hint     *handlers.HintHandler
	Feedback *handlers.FeedbackHandler
}

func wireHandlers(log *logger.Logger, r Repos, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Attempt:  handlers.NewAttemptHandler(r.Attempt, s.Aggregator),
		Event:    handlers.NewEventHandler(s.Aggregator, r.DeadLetter),
		Alert:    handlers.NewAlertHandler(s.Alerts),
		Hint:     handlers.NewHintHandler(s.Hints),
		Feedback: handlers.NewFeedbackHandler(s.Calibrator),
	}
}
