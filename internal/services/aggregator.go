package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// SnapshotPublisher receives every freshly computed risk snapshot. The
// realtime hub implements it; subscribers (alerts, hints, SSE forwarding)
// hang off the hub.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap types.RiskSnapshot)
}

// EventInput is the boundary payload of one behavioral event.
type EventInput struct {
	AttemptID      uuid.UUID      `json:"attempt_id"`
	StudentID      uuid.UUID      `json:"student_id"`
	ContentID      uuid.UUID      `json:"content_id"`
	ClientEventID  string         `json:"client_event_id"`
	Kind           string         `json:"kind"`
	OccurredAt     time.Time      `json:"occurred_at"`
	DurationSec    int            `json:"duration_sec"`
	AnsweredFields *int           `json:"answered_fields,omitempty"`
	Errors         []string       `json:"errors,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
	CognitiveLoad  map[string]any `json:"cognitive_load,omitempty"`
}

// SessionStats is the per-attempt activity summary served to dashboards.
type SessionStats struct {
	AttemptID      uuid.UUID  `json:"attempt_id"`
	Status         string     `json:"status"`
	TimeOnTaskSec  int64      `json:"time_on_task_sec"`
	EventCount     int        `json:"event_count"`
	Progress       float64    `json:"progress"`
	Velocity       float64    `json:"velocity"`
	PeakVelocity   float64    `json:"peak_velocity"`
	RiskScore      float64    `json:"risk_score"`
	RiskLevel      string     `json:"risk_level"`
	LastActivities []string   `json:"last_activities"`
	LastEventAt    *time.Time `json:"last_event_at,omitempty"`
	LastComputedAt *time.Time `json:"last_computed_at,omitempty"`
}

// SessionAggregator folds monitoring events into per-attempt aggregates and
// triggers risk recomputation. All mutation of one attempt's aggregates is
// serialized behind a per-attempt lock; events for different attempts proceed
// in parallel.
type SessionAggregator interface {
	// Apply ingests one event. Replays (same attempt and client event id) are
	// accepted no-ops; events for unknown attempts go to the dead letter table
	// and return ErrMissingAttempt.
	Apply(ctx context.Context, in EventInput) (*types.WorkAttempt, error)
	// Recompute rescans an attempt's aggregates without a new event, for
	// sweep-driven staleness refresh.
	Recompute(ctx context.Context, attemptID uuid.UUID) (*types.WorkAttempt, error)
	Stats(ctx context.Context, attemptID uuid.UUID) (*SessionStats, error)
}

type sessionAggregator struct {
	db         *gorm.DB
	attempts   monrepos.AttemptRepo
	events     monrepos.EventRepo
	deadLetter monrepos.DeadLetterRepo
	scorer     RiskScorer
	publisher  SnapshotPublisher
	cfg        EngineConfig
	locks      *keyedMutex
	log        *logger.Logger
}

func NewSessionAggregator(
	db *gorm.DB,
	attempts monrepos.AttemptRepo,
	events monrepos.EventRepo,
	deadLetter monrepos.DeadLetterRepo,
	scorer RiskScorer,
	publisher SnapshotPublisher,
	cfg EngineConfig,
	baseLog *logger.Logger,
) SessionAggregator {
	return &sessionAggregator{
		db:         db,
		attempts:   attempts,
		events:     events,
		deadLetter: deadLetter,
		scorer:     scorer,
		publisher:  publisher,
		cfg:        cfg,
		locks:      newKeyedMutex(),
		log:        baseLog.With("service", "SessionAggregator"),
	}
}

func (s *sessionAggregator) Apply(ctx context.Context, in EventInput) (*types.WorkAttempt, error) {
	if in.AttemptID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if !types.KnownEventKind(in.Kind) {
		s.log.Warn("rejected event with unknown kind", "kind", in.Kind, "attempt_id", in.AttemptID)
		return nil, pkgerrors.ErrInvalidArgument
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}
	if in.ClientEventID == "" {
		in.ClientEventID = uuid.NewString()
	}

	s.locks.Lock(in.AttemptID.String())
	defer s.locks.Unlock(in.AttemptID.String())

	attempt, err := s.attempts.GetByID(ctx, nil, in.AttemptID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			s.deadLetterEvent(ctx, in, "attempt not found")
			return nil, pkgerrors.ErrMissingAttempt
		}
		return nil, err
	}

	if attempt.Terminal() {
		// Terminal attempts no longer aggregate. Duplicate submits and abandons
		// are expected retries; anything else is logged and dropped.
		if in.Kind != types.EventSubmit && in.Kind != types.EventAbandon {
			s.log.Debug("event after terminal status ignored",
				"attempt_id", attempt.ID, "status", attempt.Status, "kind", in.Kind)
		}
		return attempt, nil
	}

	// The event row and every aggregate it changes commit together. A
	// transient failure rolls the row back too, so an at-least-once
	// redelivery re-applies the event in full instead of being mistaken
	// for a replay.
	row := s.buildEventRow(in)
	var (
		inserted bool
		snap     types.RiskSnapshot
	)
	err = s.transact(ctx, func(tx *gorm.DB) error {
		var err error
		inserted, err = s.events.CreateIgnoreDuplicates(ctx, tx, row)
		if err != nil {
			return err
		}
		if !inserted {
			// Replay of an already applied event.
			return nil
		}

		outOfOrder := attempt.LastEventAt != nil && in.OccurredAt.Before(*attempt.LastEventAt)
		if outOfOrder {
			s.log.Warn("out of order event, applying counters only",
				"attempt_id", attempt.ID, "kind", in.Kind,
				"occurred_at", in.OccurredAt, "last_event_at", *attempt.LastEventAt)
		}

		s.applyCounters(ctx, tx, attempt, in)
		if !outOfOrder {
			s.applyOrdered(attempt, in)
		}

		snap = s.scorer.Score(attempt, nil)
		eventID := row.ID
		snap.EventID = &eventID
		s.stamp(attempt, snap)

		if err := s.attempts.Update(ctx, tx, attempt); err != nil {
			return err
		}
		return s.events.UpdateSnapshot(ctx, tx, row.ID, map[string]interface{}{
			"progress":   attempt.EstimatedProgress,
			"risk_score": snap.Score,
			"risk_level": snap.Level,
			"indicators": mustJSON(snap.Indicators),
		})
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return attempt, nil
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, snap)
	}
	return attempt, nil
}

func (s *sessionAggregator) Recompute(ctx context.Context, attemptID uuid.UUID) (*types.WorkAttempt, error) {
	s.locks.Lock(attemptID.String())
	defer s.locks.Unlock(attemptID.String())

	attempt, err := s.attempts.GetByID(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Terminal() {
		return attempt, nil
	}

	snap := s.scorer.Score(attempt, nil)
	s.stamp(attempt, snap)
	if err := s.attempts.Update(ctx, nil, attempt); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, snap)
	}
	return attempt, nil
}

func (s *sessionAggregator) Stats(ctx context.Context, attemptID uuid.UUID) (*SessionStats, error) {
	attempt, err := s.attempts.GetByID(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	recent, err := s.events.ListRecentByAttempt(ctx, nil, attemptID, 10)
	if err != nil {
		return nil, err
	}
	acts := make([]string, 0, len(recent))
	for _, ev := range recent {
		acts = append(acts, ev.Kind)
	}
	_, n, err := s.events.AvgProgress(ctx, nil, attemptID, nil, nil)
	if err != nil {
		return nil, err
	}
	return &SessionStats{
		AttemptID:      attempt.ID,
		Status:         attempt.Status,
		TimeOnTaskSec:  attempt.TimeOnTaskSec,
		EventCount:     int(n),
		Progress:       attempt.EstimatedProgress,
		Velocity:       attempt.ResponseVelocity,
		PeakVelocity:   attempt.PeakVelocity,
		RiskScore:      attempt.RiskScore,
		RiskLevel:      attempt.RiskLevel,
		LastActivities: acts,
		LastEventAt:    attempt.LastEventAt,
		LastComputedAt: attempt.LastComputedAt,
	}, nil
}

// transact wraps the event insert and the aggregate writes in one transaction
// when a database handle is present; repo fakes in unit tests run without one.
func (s *sessionAggregator) transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *sessionAggregator) buildEventRow(in EventInput) *types.MonitoringEvent {
	row := &types.MonitoringEvent{
		ID:            uuid.New(),
		AttemptID:     in.AttemptID,
		StudentID:     in.StudentID,
		ContentID:     in.ContentID,
		ClientEventID: in.ClientEventID,
		Kind:          in.Kind,
		OccurredAt:    in.OccurredAt.UTC(),
		DurationSec:   in.DurationSec,
	}
	if len(in.Errors) > 0 {
		if in.Context == nil {
			in.Context = map[string]any{}
		}
		in.Context["errores"] = in.Errors
	}
	if in.Context != nil {
		row.Context = mustJSON(in.Context)
	}
	if in.CognitiveLoad != nil {
		row.CognitiveLoad = mustJSON(in.CognitiveLoad)
	}
	return row
}

// applyCounters updates the order-independent aggregates. These are safe to
// apply even for late events, which keeps totals faithful under reordering.
func (s *sessionAggregator) applyCounters(ctx context.Context, tx *gorm.DB, a *types.WorkAttempt, in EventInput) {
	// Pause duration is idle time, not time on task.
	if in.Kind != types.EventPause && in.DurationSec > 0 {
		a.TimeOnTaskSec += int64(in.DurationSec)
	}
	switch in.Kind {
	case types.EventMaterialLookup:
		a.MaterialLookups++
	case types.EventAnswerChanged:
		a.AnswerChanges++
	}
	if len(in.Errors) > 0 {
		a.ErrorCount += len(in.Errors)
		a.RepeatedErrors += s.countRepeats(ctx, tx, a.ID, in)
	}
}

// countRepeats checks the incoming errors against those recorded on the last
// few events, so a mistake the student keeps making weighs more than scattered
// one-off slips.
func (s *sessionAggregator) countRepeats(ctx context.Context, tx *gorm.DB, attemptID uuid.UUID, in EventInput) int {
	recent, err := s.events.ListRecentByAttempt(ctx, tx, attemptID, 5)
	if err != nil {
		s.log.Warn("repeat scan failed", "attempt_id", attemptID, "error", err)
		return 0
	}
	seen := map[string]bool{}
	for _, ev := range recent {
		if ev.ClientEventID == in.ClientEventID || len(ev.Context) == 0 {
			continue
		}
		var payload struct {
			Errores []string `json:"errores"`
		}
		if err := json.Unmarshal(ev.Context, &payload); err != nil {
			continue
		}
		for _, e := range payload.Errores {
			seen[e] = true
		}
	}
	repeats := 0
	for _, e := range in.Errors {
		if seen[e] {
			repeats++
		}
	}
	return repeats
}

// applyOrdered updates the aggregates that assume events arrive in sequence:
// velocity, progress, pause bookkeeping and status transitions.
func (s *sessionAggregator) applyOrdered(a *types.WorkAttempt, in EventInput) {
	switch in.Kind {
	case types.EventAnswerWritten, types.EventAnswerChanged, types.EventMaterialLookup:
		if a.LastEventAt != nil {
			gap := in.OccurredAt.Sub(*a.LastEventAt).Seconds()
			if gap >= 1 {
				inst := 60 / gap // actions per minute
				if a.ResponseVelocity == 0 {
					a.ResponseVelocity = inst
				} else {
					a.ResponseVelocity = s.cfg.VelocityAlpha*inst + (1-s.cfg.VelocityAlpha)*a.ResponseVelocity
				}
				if a.ResponseVelocity > a.PeakVelocity {
					a.PeakVelocity = a.ResponseVelocity
				}
			}
		}
	case types.EventPause:
		at := in.OccurredAt.UTC()
		a.PausedAt = &at
	case types.EventResume:
		a.PausedAt = nil
	case types.EventSubmit:
		at := in.OccurredAt.UTC()
		a.Status = types.AttemptSubmitted
		a.SubmittedAt = &at
		a.PausedAt = nil
	case types.EventAbandon:
		a.Status = types.AttemptAbandoned
		a.PausedAt = nil
	}

	if in.AnsweredFields != nil && a.TotalFields > 0 {
		a.EstimatedProgress = clamp01(float64(*in.AnsweredFields) / float64(a.TotalFields))
	}

	at := in.OccurredAt.UTC()
	a.LastEventAt = &at
}

func (s *sessionAggregator) stamp(a *types.WorkAttempt, snap types.RiskSnapshot) {
	a.RiskScore = snap.Score
	a.RiskLevel = snap.Level
	now := snap.ComputedAt
	a.LastComputedAt = &now
}

func (s *sessionAggregator) deadLetterEvent(ctx context.Context, in EventInput, reason string) {
	payload, _ := json.Marshal(in)
	err := s.deadLetter.Create(ctx, nil, &types.DeadLetterEvent{
		AttemptID: in.AttemptID,
		StudentID: in.StudentID,
		Kind:      in.Kind,
		Reason:    reason,
		Payload:   payload,
	})
	if err != nil {
		s.log.Error("dead letter write failed", "attempt_id", in.AttemptID, "error", err)
	}
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
