package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/testutil"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
)

func seedAttempt(t *testing.T, repo AttemptRepo) *types.WorkAttempt {
	t.Helper()
	attempt := &types.WorkAttempt{
		ID:                  uuid.New(),
		StudentID:           uuid.New(),
		ContentID:           uuid.New(),
		Status:              types.AttemptInProgress,
		ExpectedDurationSec: 1200,
		TotalFields:         10,
		RiskLevel:           types.RiskBajo,
	}
	if err := repo.Create(context.Background(), nil, attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	return attempt
}

func TestAttemptRepoRoundTrip(t *testing.T) {
	tx := testutil.Tx(t)
	repo := NewAttemptRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	attempt := seedAttempt(t, repo)
	got, err := repo.GetByID(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StudentID != attempt.StudentID || got.TotalFields != 10 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetByID(ctx, nil, uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing attempt err = %v, want ErrNotFound", err)
	}
}

func TestEventRepoDuplicateClientEventID(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	attempts := NewAttemptRepo(tx, log)
	events := NewEventRepo(tx, log)
	ctx := context.Background()

	attempt := seedAttempt(t, attempts)
	row := &types.MonitoringEvent{
		ID:            uuid.New(),
		AttemptID:     attempt.ID,
		StudentID:     attempt.StudentID,
		ContentID:     attempt.ContentID,
		ClientEventID: "client-evt-1",
		Kind:          types.EventAnswerWritten,
		OccurredAt:    time.Now().UTC(),
	}
	inserted, err := events.CreateIgnoreDuplicates(ctx, nil, row)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	dup := *row
	dup.ID = uuid.New()
	inserted, err = events.CreateIgnoreDuplicates(ctx, nil, &dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate client event id was inserted")
	}

	all, err := events.ListByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("events = %d, want 1", len(all))
	}
}

func TestEventRepoAvgProgressWindows(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	attempts := NewAttemptRepo(tx, log)
	events := NewEventRepo(tx, log)
	ctx := context.Background()

	attempt := seedAttempt(t, attempts)
	pivot := time.Now().UTC()
	for i, p := range []float64{0.2, 0.4, 0.8} {
		offset := time.Duration(i-1) * time.Hour // one before, one at, one after pivot
		_, err := events.CreateIgnoreDuplicates(ctx, nil, &types.MonitoringEvent{
			ID:            uuid.New(),
			AttemptID:     attempt.ID,
			StudentID:     attempt.StudentID,
			ContentID:     attempt.ContentID,
			ClientEventID: uuid.NewString(),
			Kind:          types.EventAnswerWritten,
			OccurredAt:    pivot.Add(offset),
			Progress:      p,
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	avg, n, err := events.AvgProgress(ctx, nil, attempt.ID, nil, &pivot)
	if err != nil {
		t.Fatalf("avg before: %v", err)
	}
	if n != 1 || avg != 0.2 {
		t.Fatalf("before pivot: avg=%v n=%d, want 0.2/1", avg, n)
	}

	avg, n, err = events.AvgProgress(ctx, nil, attempt.ID, &pivot, nil)
	if err != nil {
		t.Fatalf("avg after: %v", err)
	}
	if n != 2 || avg != 0.6 {
		t.Fatalf("from pivot: avg=%v n=%d, want 0.6/2", avg, n)
	}
}

func TestAlertRepoLatestAndActive(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	attempts := NewAttemptRepo(tx, log)
	alerts := NewAlertRepo(tx, log)
	ctx := context.Background()

	attempt := seedAttempt(t, attempts)
	older := &types.Alert{
		ID:          uuid.New(),
		AttemptID:   attempt.ID,
		StudentID:   attempt.StudentID,
		Type:        types.AlertBajoProgreso,
		Severity:    types.SeverityAlta,
		Message:     "m",
		Estado:      types.AlertResuelta,
		GeneratedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	newer := &types.Alert{
		ID:          uuid.New(),
		AttemptID:   attempt.ID,
		StudentID:   attempt.StudentID,
		Type:        types.AlertBajoProgreso,
		Severity:    types.SeverityAlta,
		Message:     "m",
		Estado:      types.AlertGenerada,
		GeneratedAt: time.Now().UTC().Add(-time.Minute),
	}
	for _, a := range []*types.Alert{older, newer} {
		if err := alerts.Create(ctx, nil, a); err != nil {
			t.Fatalf("create alert: %v", err)
		}
	}

	latest, err := alerts.GetLatestByAttemptAndType(ctx, nil, attempt.ID, types.AlertBajoProgreso)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != newer.ID {
		t.Fatalf("latest = %v, want %v", latest.ID, newer.ID)
	}

	active, err := alerts.ListActiveByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != newer.ID {
		t.Fatalf("active = %d, want only the open alert", len(active))
	}
}

func TestHintRepoContentDedup(t *testing.T) {
	tx := testutil.Tx(t)
	log := testutil.Logger(t)
	attempts := NewAttemptRepo(tx, log)
	hints := NewHintRepo(tx, log)
	ctx := context.Background()

	attempt := seedAttempt(t, attempts)
	hint := &types.Hint{
		ID:            uuid.New(),
		AttemptID:     attempt.ID,
		StudentID:     attempt.StudentID,
		Type:          types.HintSocratico,
		Topic:         "fracciones",
		Content:       "¿Qué te pide el enunciado?",
		ContentHash:   "abc123",
		GuidanceLevel: 3,
		Estado:        types.HintGenerada,
		Visible:       true,
	}
	if err := hints.Create(ctx, nil, hint); err != nil {
		t.Fatalf("create hint: %v", err)
	}

	exists, err := hints.ContentExists(ctx, nil, attempt.ID, "fracciones", "abc123")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatalf("stored content reported missing")
	}
	exists, err = hints.ContentExists(ctx, nil, attempt.ID, "fracciones", "other")
	if err != nil {
		t.Fatalf("exists other: %v", err)
	}
	if exists {
		t.Fatalf("unknown hash reported present")
	}

	last, err := hints.LastByAttemptTypeTopic(ctx, nil, attempt.ID, types.HintSocratico, "fracciones")
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || last.ID != hint.ID {
		t.Fatalf("last hint mismatch")
	}
}
