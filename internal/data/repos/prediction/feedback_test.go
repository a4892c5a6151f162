package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/testutil"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
)

func seedFeedback(t *testing.T, repo FeedbackRepo) *types.Feedback {
	t.Helper()
	row := &types.Feedback{
		ID:                  uuid.New(),
		StudentID:           uuid.New(),
		PredictionType:      types.TypeProgreso,
		PredictedValue:      "78",
		PredictedScore:      78,
		Confidence:          0.7,
		ModelVersion:        "v2.1",
		PredictionTimestamp: time.Now().UTC().Add(-24 * time.Hour),
	}
	if err := repo.Create(context.Background(), nil, row); err != nil {
		t.Fatalf("create feedback: %v", err)
	}
	return row
}

func TestResolveOnceIsExactlyOnce(t *testing.T) {
	tx := testutil.Tx(t)
	repo := NewFeedbackRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	row := seedFeedback(t, repo)
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"actual_value":       "80",
		"actual_score":       80.0,
		"prediction_correct": true,
		"accuracy_level":     types.AccuracyExcellent,
		"feedback_timestamp": now,
	}
	if err := repo.ResolveOnce(ctx, nil, row.ID, updates); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if err := repo.ResolveOnce(ctx, nil, row.ID, updates); !errors.Is(err, pkgerrors.ErrAlreadyResolved) {
		t.Fatalf("second resolve err = %v, want ErrAlreadyResolved", err)
	}
	if err := repo.ResolveOnce(ctx, nil, uuid.New(), updates); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing row err = %v, want ErrNotFound", err)
	}

	got, err := repo.GetByID(ctx, nil, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Resolved() || got.ActualValue == nil || *got.ActualValue != "80" {
		t.Fatalf("resolution not persisted: %+v", got)
	}
}

func TestListPendingExcludesResolved(t *testing.T) {
	tx := testutil.Tx(t)
	repo := NewFeedbackRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	pending := seedFeedback(t, repo)
	resolved := seedFeedback(t, repo)
	if err := repo.ResolveOnce(ctx, nil, resolved.ID, map[string]interface{}{
		"feedback_timestamp": time.Now().UTC(),
	}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	rows, err := repo.ListPending(ctx, nil, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	for _, r := range rows {
		if r.ID == resolved.ID {
			t.Fatalf("resolved row listed as pending")
		}
	}
	found := false
	for _, r := range rows {
		if r.ID == pending.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("pending row missing from list")
	}
}

func TestStatsGroupsByTypeAndVersion(t *testing.T) {
	tx := testutil.Tx(t)
	repo := NewFeedbackRepo(tx, testutil.Logger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		row := seedFeedback(t, repo)
		correct := i < 2
		if err := repo.ResolveOnce(ctx, nil, row.ID, map[string]interface{}{
			"prediction_correct": correct,
			"feedback_timestamp": time.Now().UTC(),
			"error_percentage":   10.0,
		}); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}

	stats, err := repo.Stats(ctx, nil, types.TypeProgreso, "v2.1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats rows = %d, want 1", len(stats))
	}
	s := stats[0]
	if s.Total != 3 || s.Resolved != 3 || s.Correct != 2 {
		t.Fatalf("counts = %+v", s)
	}
	want := 2.0 / 3.0 * 100
	if s.AccuracyRate < want-0.01 || s.AccuracyRate > want+0.01 {
		t.Fatalf("accuracy rate = %v, want ~%v", s.AccuracyRate, want)
	}
}
