package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// AlertOrchestrator owns the alert lifecycle. It consumes risk snapshots,
// deduplicates per (attempt, type) under a cooldown window, and validates
// every state change against the transition table.
type AlertOrchestrator interface {
	OnSnapshot(ctx context.Context, snap types.RiskSnapshot) error
	// MarkNotified confirms delivery. Idempotent: confirming an already
	// notified alert is a no-op.
	MarkNotified(ctx context.Context, alertID uuid.UUID) (*types.Alert, error)
	// TeacherAction records an explicit disposition (intervenida, resuelta or
	// falsa_alarma) by an identified teacher.
	TeacherAction(ctx context.Context, alertID, teacherID uuid.UUID, action, disposition string) (*types.Alert, error)
	ListPending(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.Alert, error)
}

type alertOrchestrator struct {
	alerts monrepos.AlertRepo
	cfg    EngineConfig
	locks  *keyedMutex
	log    *logger.Logger
}

func NewAlertOrchestrator(alerts monrepos.AlertRepo, cfg EngineConfig, baseLog *logger.Logger) AlertOrchestrator {
	return &alertOrchestrator{
		alerts: alerts,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		log:    baseLog.With("service", "AlertOrchestrator"),
	}
}

type alertTemplate struct {
	severity       string
	message        string
	recommendation string
}

var alertTemplates = map[string]alertTemplate{
	types.AlertRiesgoAbandono: {
		severity:       types.SeverityCritica,
		message:        "El estudiante muestra señales de abandono de la tarea",
		recommendation: "Contactar al estudiante de inmediato y ofrecer apoyo directo",
	},
	types.AlertBajoProgreso: {
		severity:       types.SeverityAlta,
		message:        "Progreso muy por debajo de lo esperado para el tiempo invertido",
		recommendation: "Revisar si el material previo fue comprendido y ajustar la dificultad",
	},
	types.AlertDificultadConceptual: {
		severity:       types.SeverityMedia,
		message:        "Consulta constante de material sin avance en las respuestas",
		recommendation: "Reforzar el concepto con un ejemplo resuelto",
	},
	types.AlertPatronesError: {
		severity:       types.SeverityMedia,
		message:        "El mismo error se repite en varios intentos de respuesta",
		recommendation: "Señalar el patrón de error y proponer un ejercicio de diagnóstico",
	},
	types.AlertDesempenoInconsistente: {
		severity:       types.SeverityMedia,
		message:        "Ciclos de corrección constantes sin consolidar una respuesta",
		recommendation: "Sugerir una pausa breve y retomar con una estrategia guiada",
	},
	types.AlertInactividad: {
		severity:       types.SeverityBaja,
		message:        "El ritmo de trabajo cayó notablemente respecto al inicio",
		recommendation: "Enviar un recordatorio y verificar si hay bloqueo externo",
	},
}

// alertTypeFor maps the dominant behavioral indicator to an alert type.
func alertTypeFor(snap types.RiskSnapshot) string {
	dom, ok := snap.Dominant()
	if !ok {
		return types.AlertBajoProgreso
	}
	switch dom.Code {
	case types.IndicatorAbandon:
		return types.AlertRiesgoAbandono
	case types.IndicatorLowProgress, types.IndicatorExcessTime:
		return types.AlertBajoProgreso
	case types.IndicatorResourceDependency:
		return types.AlertDificultadConceptual
	case types.IndicatorRepeatedErrors:
		return types.AlertPatronesError
	case types.IndicatorCorrectionLoop:
		return types.AlertDesempenoInconsistente
	case types.IndicatorDecliningVelocity:
		return types.AlertInactividad
	default:
		return types.AlertBajoProgreso
	}
}

func (s *alertOrchestrator) OnSnapshot(ctx context.Context, snap types.RiskSnapshot) error {
	switch snap.Level {
	case types.RiskAlto, types.RiskCritico:
		return s.raise(ctx, snap)
	case types.RiskBajo:
		return s.recordImprovement(ctx, snap)
	case types.RiskMedio:
		return s.breakLowStreaks(ctx, snap)
	}
	return nil
}

// raise creates or refreshes the (attempt, type) alert. Lookup and write
// happen under a per-key lock so two concurrent snapshots cannot create two
// active alerts for the same key.
func (s *alertOrchestrator) raise(ctx context.Context, snap types.RiskSnapshot) error {
	alertType := alertTypeFor(snap)
	key := snap.AttemptID.String() + "/" + alertType
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	last, err := s.alerts.GetLatestByAttemptAndType(ctx, nil, snap.AttemptID, alertType)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if last != nil && last.Active() {
		// Refresh the open alert instead of duplicating it. Severity can only
		// escalate in place.
		updates := map[string]interface{}{
			"confidence": snap.Score,
			"low_streak": 0,
			"trigger_metrics": mustJSON(map[string]any{
				"score":      snap.Score,
				"level":      snap.Level,
				"indicators": snap.Indicators,
			}),
		}
		if snap.Level == types.RiskCritico && last.Severity != types.SeverityCritica {
			updates["severity"] = types.SeverityCritica
		}
		return s.alerts.UpdateFields(ctx, nil, last.ID, updates)
	}
	if last != nil && now.Sub(last.GeneratedAt) < s.cfg.Cooldown {
		s.log.Debug("alert suppressed by cooldown",
			"attempt_id", snap.AttemptID, "type", alertType, "generated_at", last.GeneratedAt)
		return nil
	}

	tpl := alertTemplates[alertType]
	severity := tpl.severity
	if snap.Level == types.RiskCritico && severity != types.SeverityCritica {
		severity = types.SeverityAlta
	}
	alert := &types.Alert{
		ID:                uuid.New(),
		AttemptID:         snap.AttemptID,
		StudentID:         snap.StudentID,
		MonitoringEventID: snap.EventID,
		Type:              alertType,
		Severity:          severity,
		Confidence:        snap.Score,
		Message:           tpl.message,
		Recommendation:    tpl.recommendation,
		TriggerMetrics: mustJSON(map[string]any{
			"score":      snap.Score,
			"level":      snap.Level,
			"indicators": snap.Indicators,
		}),
		Estado:      types.AlertGenerada,
		GeneratedAt: now,
	}
	if err := s.alerts.Create(ctx, nil, alert); err != nil {
		return err
	}
	s.log.Info("alert generated",
		"alert_id", alert.ID, "attempt_id", snap.AttemptID,
		"type", alertType, "severity", severity, "score", snap.Score)
	return nil
}

// recordImprovement counts consecutive low-risk recomputations against open
// alerts. An alert that was never delivered and stays low twice in a row is
// auto-closed as a false alarm.
func (s *alertOrchestrator) recordImprovement(ctx context.Context, snap types.RiskSnapshot) error {
	open, err := s.alerts.ListActiveByAttempt(ctx, nil, snap.AttemptID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, alert := range open {
		streak := alert.LowStreak + 1
		if streak >= 2 && alert.NotifiedAt == nil &&
			types.CanTransitionAlert(alert.Estado, types.AlertFalsaAlarma) {
			err := s.alerts.UpdateFields(ctx, nil, alert.ID, map[string]interface{}{
				"estado":      types.AlertFalsaAlarma,
				"low_streak":  streak,
				"resolved_at": now,
			})
			if err != nil {
				return err
			}
			s.log.Info("alert auto-closed as false alarm",
				"alert_id", alert.ID, "attempt_id", snap.AttemptID, "type", alert.Type)
			continue
		}
		if err := s.alerts.UpdateFields(ctx, nil, alert.ID, map[string]interface{}{
			"low_streak": streak,
		}); err != nil {
			return err
		}
	}
	return nil
}

// breakLowStreaks zeroes the improvement counter on open alerts. The two low
// recomputations that auto-close an unnotified alert must be consecutive; a
// medio snapshot between them restarts the count.
func (s *alertOrchestrator) breakLowStreaks(ctx context.Context, snap types.RiskSnapshot) error {
	open, err := s.alerts.ListActiveByAttempt(ctx, nil, snap.AttemptID)
	if err != nil {
		return err
	}
	for _, alert := range open {
		if alert.LowStreak == 0 {
			continue
		}
		if err := s.alerts.UpdateFields(ctx, nil, alert.ID, map[string]interface{}{
			"low_streak": 0,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *alertOrchestrator) MarkNotified(ctx context.Context, alertID uuid.UUID) (*types.Alert, error) {
	key := "notify/" + alertID.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	alert, err := s.alerts.GetByID(ctx, nil, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Estado == types.AlertNotificada {
		return alert, nil
	}
	if !types.CanTransitionAlert(alert.Estado, types.AlertNotificada) {
		if types.AlertTerminal(alert.Estado) {
			return nil, pkgerrors.ErrAlreadyResolved
		}
		return nil, pkgerrors.ErrInvalidTransition
	}
	now := time.Now().UTC()
	alert.Estado = types.AlertNotificada
	alert.NotifiedAt = &now
	if err := s.alerts.Update(ctx, nil, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *alertOrchestrator) TeacherAction(ctx context.Context, alertID, teacherID uuid.UUID, action, disposition string) (*types.Alert, error) {
	if teacherID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	switch disposition {
	case types.AlertIntervenida, types.AlertResuelta, types.AlertFalsaAlarma:
	default:
		return nil, pkgerrors.ErrInvalidArgument
	}

	key := "action/" + alertID.String()
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	alert, err := s.alerts.GetByID(ctx, nil, alertID)
	if err != nil {
		return nil, err
	}
	if types.AlertTerminal(alert.Estado) {
		return nil, pkgerrors.ErrAlreadyResolved
	}
	if !types.CanTransitionAlert(alert.Estado, disposition) {
		return nil, pkgerrors.ErrInvalidTransition
	}

	now := time.Now().UTC()
	alert.Estado = disposition
	alert.TeacherID = &teacherID
	alert.TeacherAction = action
	switch disposition {
	case types.AlertIntervenida:
		alert.IntervenedAt = &now
	case types.AlertResuelta, types.AlertFalsaAlarma:
		alert.ResolvedAt = &now
	}
	if err := s.alerts.Update(ctx, nil, alert); err != nil {
		return nil, err
	}
	s.log.Info("teacher action recorded",
		"alert_id", alert.ID, "teacher_id", teacherID, "disposition", disposition)
	return alert, nil
}

func (s *alertOrchestrator) ListPending(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.Alert, error) {
	return s.alerts.ListPendingByStudent(ctx, nil, studentID, limit)
}
