package services

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
)

func TestLevelForThresholds(t *testing.T) {
	th := DefaultEngineConfig().Thresholds
	cases := []struct {
		score float64
		want  string
	}{
		{0.0, types.RiskBajo},
		{0.29, types.RiskBajo},
		{0.3, types.RiskMedio},
		{0.31, types.RiskMedio},
		{0.59, types.RiskMedio},
		{0.6, types.RiskAlto},
		{0.84, types.RiskAlto},
		{0.85, types.RiskCritico},
		{1.0, types.RiskCritico},
	}
	for _, tc := range cases {
		if got := th.LevelFor(tc.score); got != tc.want {
			t.Fatalf("LevelFor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestLevelForMonotone(t *testing.T) {
	th := DefaultEngineConfig().Thresholds
	order := map[string]int{
		types.RiskBajo:    0,
		types.RiskMedio:   1,
		types.RiskAlto:    2,
		types.RiskCritico: 3,
	}
	prev := -1
	for s := 0.0; s <= 1.0; s += 0.01 {
		rank := order[th.LevelFor(s)]
		if rank < prev {
			t.Fatalf("level rank decreased at score %v", s)
		}
		prev = rank
	}
}

func TestScoreCleanAttemptIsBajo(t *testing.T) {
	scorer := NewRiskScorer(DefaultEngineConfig(), testLogger(t))
	attempt := &types.WorkAttempt{
		ID:                  uuid.New(),
		StudentID:           uuid.New(),
		ContentID:           uuid.New(),
		Status:              types.AttemptInProgress,
		ExpectedDurationSec: 1200,
		TotalFields:         10,
		TimeOnTaskSec:       300,
		EstimatedProgress:   0.4,
	}
	snap := scorer.Score(attempt, nil)
	if snap.Level != types.RiskBajo {
		t.Fatalf("clean attempt scored %q (%.3f), want bajo", snap.Level, snap.Score)
	}
}

func TestScoreStrugglingAttemptIsAltoOrCritico(t *testing.T) {
	scorer := NewRiskScorer(DefaultEngineConfig(), testLogger(t))
	// 50 minutes on a 20-minute task, little progress, leaning on materials.
	attempt := &types.WorkAttempt{
		ID:                  uuid.New(),
		StudentID:           uuid.New(),
		ContentID:           uuid.New(),
		Status:              types.AttemptInProgress,
		ExpectedDurationSec: 1200,
		TotalFields:         1,
		TimeOnTaskSec:       3000,
		EstimatedProgress:   0.2,
		MaterialLookups:     3,
	}
	snap := scorer.Score(attempt, nil)
	if snap.Level != types.RiskAlto && snap.Level != types.RiskCritico {
		t.Fatalf("struggling attempt scored %q (%.3f), want alto or critico", snap.Level, snap.Score)
	}
}

func TestScoreAbandonedAttemptIsCritico(t *testing.T) {
	scorer := NewRiskScorer(DefaultEngineConfig(), testLogger(t))
	attempt := &types.WorkAttempt{
		ID:     uuid.New(),
		Status: types.AttemptAbandoned,
	}
	snap := scorer.Score(attempt, nil)
	if snap.Level != types.RiskCritico {
		t.Fatalf("abandoned attempt scored %q, want critico", snap.Level)
	}
	dom, ok := snap.Dominant()
	if !ok || dom.Code != types.IndicatorAbandon {
		t.Fatalf("dominant indicator = %+v, want abandono", dom)
	}
}

func TestScoreBlendsModelOutput(t *testing.T) {
	scorer := NewRiskScorer(DefaultEngineConfig(), testLogger(t))
	attempt := &types.WorkAttempt{
		ID:                  uuid.New(),
		Status:              types.AttemptInProgress,
		ExpectedDurationSec: 1200,
		TotalFields:         10,
	}
	without := scorer.Score(attempt, nil)
	with := scorer.Score(attempt, &ModelOutput{Score: 1.0, Confidence: 0.9})
	if with.Score <= without.Score {
		t.Fatalf("model score 1.0 should raise the blend: %.3f <= %.3f", with.Score, without.Score)
	}
	if with.ModelScore == nil || *with.ModelScore != 1.0 {
		t.Fatalf("model score not recorded on snapshot")
	}
	behavioral := with.BehavioralScore
	want := 0.5*behavioral + 0.5*1.0
	if diff := with.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("blend = %.6f, want %.6f", with.Score, want)
	}
}
