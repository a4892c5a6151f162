package app

import (
	"gorm.io/gorm"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	predrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/prediction"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type Repos struct {
	Attempt    monrepos.AttemptRepo
	Event      monrepos.EventRepo
	DeadLetter monrepos.DeadLetterRepo
	Alert      monrepos.AlertRepo
	Hint       monrepos.HintRepo
	Feedback   predrepos.FeedbackRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Attempt:    monrepos.NewAttemptRepo(db, log),
		Event:      monrepos.NewEventRepo(db, log),
		DeadLetter: monrepos.NewDeadLetterRepo(db, log),
		Alert:      monrepos.NewAlertRepo(db, log),
		Hint:       monrepos.NewHintRepo(db, log),
		Feedback:   predrepos.NewFeedbackRepo(db, log),
	}
}
