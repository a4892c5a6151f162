package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
)

// AutoMigrateAll keeps the engine schema in sync at startup. Order follows
// reference direction: attempts first, then the records that point at them.
func (s *Service) AutoMigrateAll() error {
	models := []interface{}{
		&monitoring.WorkAttempt{},
		&monitoring.MonitoringEvent{},
		&monitoring.DeadLetterEvent{},
		&monitoring.Alert{},
		&monitoring.Hint{},
		&prediction.Feedback{},
	}
	if err := s.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	s.log.Info("Database schema migrated", "models", len(models))
	return nil
}

// Migrate is the test hook: it runs the same model list against an arbitrary handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&monitoring.WorkAttempt{},
		&monitoring.MonitoringEvent{},
		&monitoring.DeadLetterEvent{},
		&monitoring.Alert{},
		&monitoring.Hint{},
		&prediction.Feedback{},
	)
}
