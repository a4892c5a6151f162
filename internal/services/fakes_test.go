package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	predrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/prediction"
	montypes "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	predtypes "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

func testLogger(tb interface{ Fatalf(string, ...interface{}) }) *logger.Logger {
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

// ---- attempts ----

type fakeAttemptRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]montypes.WorkAttempt

	// failNextUpdate makes the next Update call return this error once,
	// simulating a transient write failure.
	failNextUpdate error
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{rows: map[uuid.UUID]montypes.WorkAttempt{}}
}

func (r *fakeAttemptRepo) Create(_ context.Context, _ *gorm.DB, row *montypes.WorkAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *fakeAttemptRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*montypes.WorkAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	out := row
	return &out, nil
}

func (r *fakeAttemptRepo) Update(_ context.Context, _ *gorm.DB, row *montypes.WorkAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNextUpdate != nil {
		err := r.failNextUpdate
		r.failNextUpdate = nil
		return err
	}
	r.rows[row.ID] = *row
	return nil
}

func (r *fakeAttemptRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ map[string]interface{}) error {
	return nil
}

func (r *fakeAttemptRepo) ListByStudent(_ context.Context, _ *gorm.DB, studentID uuid.UUID) ([]*montypes.WorkAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.WorkAttempt
	for _, row := range r.rows {
		if row.StudentID == studentID {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListInProgressIdleSince(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]*montypes.WorkAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.WorkAttempt
	for _, row := range r.rows {
		if row.Status == montypes.AttemptInProgress && row.LastEventAt != nil && row.LastEventAt.Before(cutoff) {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- events ----

type fakeEventRepo struct {
	mu   sync.Mutex
	rows []montypes.MonitoringEvent
	seen map[string]bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{seen: map[string]bool{}}
}

func (r *fakeEventRepo) CreateIgnoreDuplicates(_ context.Context, _ *gorm.DB, row *montypes.MonitoringEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := row.AttemptID.String() + "/" + row.ClientEventID
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	cp := *row
	cp.CreatedAt = time.Now().UTC()
	r.rows = append(r.rows, cp)
	return true, nil
}

func (r *fakeEventRepo) UpdateSnapshot(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			if v, ok := updates["progress"].(float64); ok {
				r.rows[i].Progress = v
			}
			if v, ok := updates["risk_score"].(float64); ok {
				r.rows[i].RiskScore = v
			}
			if v, ok := updates["risk_level"].(string); ok {
				r.rows[i].RiskLevel = v
			}
		}
	}
	return nil
}

func (r *fakeEventRepo) ListByAttempt(_ context.Context, _ *gorm.DB, attemptID uuid.UUID) ([]*montypes.MonitoringEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.MonitoringEvent
	for i := range r.rows {
		if r.rows[i].AttemptID == attemptID {
			cp := r.rows[i]
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *fakeEventRepo) ListRecentByAttempt(_ context.Context, _ *gorm.DB, attemptID uuid.UUID, limit int) ([]*montypes.MonitoringEvent, error) {
	all, _ := r.ListByAttempt(nil, nil, attemptID)
	sort.Slice(all, func(i, j int) bool { return all[i].OccurredAt.After(all[j].OccurredAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeEventRepo) AvgProgress(_ context.Context, _ *gorm.DB, attemptID uuid.UUID, from, to *time.Time) (float64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	var n int64
	for i := range r.rows {
		row := r.rows[i]
		if row.AttemptID != attemptID {
			continue
		}
		if from != nil && row.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && !row.OccurredAt.Before(*to) {
			continue
		}
		sum += row.Progress
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / float64(n), n, nil
}

// ---- dead letters ----

type fakeDeadLetterRepo struct {
	mu   sync.Mutex
	rows []montypes.DeadLetterEvent
}

func (r *fakeDeadLetterRepo) Create(_ context.Context, _ *gorm.DB, row *montypes.DeadLetterEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *row)
	return nil
}

func (r *fakeDeadLetterRepo) ListRecent(_ context.Context, _ *gorm.DB, limit int) ([]*montypes.DeadLetterEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.DeadLetterEvent
	for i := range r.rows {
		cp := r.rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

// ---- alerts ----

type fakeAlertRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]montypes.Alert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{rows: map[uuid.UUID]montypes.Alert{}}
}

func (r *fakeAlertRepo) Create(_ context.Context, _ *gorm.DB, row *montypes.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *fakeAlertRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*montypes.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	out := row
	return &out, nil
}

func (r *fakeAlertRepo) GetLatestByAttemptAndType(_ context.Context, _ *gorm.DB, attemptID uuid.UUID, alertType string) (*montypes.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *montypes.Alert
	for _, row := range r.rows {
		if row.AttemptID != attemptID || row.Type != alertType {
			continue
		}
		cp := row
		if best == nil || cp.GeneratedAt.After(best.GeneratedAt) {
			best = &cp
		}
	}
	return best, nil
}

func (r *fakeAlertRepo) Update(_ context.Context, _ *gorm.DB, row *montypes.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *fakeAlertRepo) UpdateFields(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "estado":
			row.Estado = v.(string)
		case "low_streak":
			row.LowStreak = v.(int)
		case "severity":
			row.Severity = v.(string)
		case "confidence":
			row.Confidence = v.(float64)
		case "resolved_at":
			t := v.(time.Time)
			row.ResolvedAt = &t
		case "effectiveness_checked_at":
			t := v.(time.Time)
			row.EffectivenessCheckedAt = &t
		case "student_improved":
			b := v.(bool)
			row.StudentImproved = &b
		case "improvement_delta":
			f := v.(float64)
			row.ImprovementDelta = &f
		}
	}
	r.rows[id] = row
	return nil
}

func (r *fakeAlertRepo) ListActiveByAttempt(_ context.Context, _ *gorm.DB, attemptID uuid.UUID) ([]*montypes.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.Alert
	for _, row := range r.rows {
		if row.AttemptID == attemptID && !montypes.AlertTerminal(row.Estado) {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListPendingByStudent(_ context.Context, _ *gorm.DB, studentID uuid.UUID, _ int) ([]*montypes.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.Alert
	for _, row := range r.rows {
		if row.StudentID == studentID &&
			(row.Estado == montypes.AlertGenerada || row.Estado == montypes.AlertNotificada) {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ListForEffectiveness(_ context.Context, _ *gorm.DB, cutoff time.Time, _ int) ([]*montypes.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.Alert
	for _, row := range r.rows {
		if row.ResolvedAt != nil && row.EffectivenessCheckedAt == nil && row.ResolvedAt.Before(cutoff) {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- hints ----

type fakeHintRepo struct {
	mu   sync.Mutex
	rows []montypes.Hint
}

func (r *fakeHintRepo) Create(_ context.Context, _ *gorm.DB, row *montypes.Hint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *row
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.rows = append(r.rows, cp)
	return nil
}

func (r *fakeHintRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*montypes.Hint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (r *fakeHintRepo) Update(_ context.Context, _ *gorm.DB, row *montypes.Hint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == row.ID {
			created := r.rows[i].CreatedAt
			r.rows[i] = *row
			r.rows[i].CreatedAt = created
			return nil
		}
	}
	return pkgerrors.ErrNotFound
}

func (r *fakeHintRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ map[string]interface{}) error {
	return nil
}

func (r *fakeHintRepo) LastByAttemptTypeTopic(_ context.Context, _ *gorm.DB, attemptID uuid.UUID, hintType, topic string) (*montypes.Hint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *montypes.Hint
	for i := range r.rows {
		row := r.rows[i]
		if row.AttemptID != attemptID || row.Type != hintType {
			continue
		}
		if topic != "" && row.Topic != topic {
			continue
		}
		cp := row
		if best == nil || cp.CreatedAt.After(best.CreatedAt) {
			best = &cp
		}
	}
	return best, nil
}

func (r *fakeHintRepo) ContentExists(_ context.Context, _ *gorm.DB, attemptID uuid.UUID, topic, contentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		row := r.rows[i]
		if row.AttemptID == attemptID && row.Topic == topic && row.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeHintRepo) ListByAttempt(_ context.Context, _ *gorm.DB, attemptID uuid.UUID) ([]*montypes.Hint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.Hint
	for i := range r.rows {
		if r.rows[i].AttemptID == attemptID {
			cp := r.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeHintRepo) ListPendingByStudent(_ context.Context, _ *gorm.DB, studentID uuid.UUID, _ int) ([]*montypes.Hint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*montypes.Hint
	for i := range r.rows {
		row := r.rows[i]
		if row.StudentID == studentID && row.Estado == montypes.HintGenerada && row.Visible {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- prediction feedback ----

type fakeFeedbackRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]predtypes.Feedback
}

func newFakeFeedbackRepo() *fakeFeedbackRepo {
	return &fakeFeedbackRepo{rows: map[uuid.UUID]predtypes.Feedback{}}
}

func (r *fakeFeedbackRepo) Create(_ context.Context, _ *gorm.DB, row *predtypes.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *fakeFeedbackRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*predtypes.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	out := row
	return &out, nil
}

func (r *fakeFeedbackRepo) ResolveOnce(_ context.Context, _ *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if row.FeedbackTimestamp != nil {
		return pkgerrors.ErrAlreadyResolved
	}
	for k, v := range updates {
		switch k {
		case "actual_value":
			s := v.(string)
			row.ActualValue = &s
		case "actual_score":
			f := v.(float64)
			row.ActualScore = &f
		case "prediction_correct":
			b := v.(bool)
			row.PredictionCorrect = &b
		case "error_margin":
			f := v.(float64)
			row.ErrorMargin = &f
		case "error_percentage":
			f := v.(float64)
			row.ErrorPercentage = &f
		case "accuracy_level":
			row.AccuracyLevel = v.(string)
		case "feedback_timestamp":
			t := v.(time.Time)
			row.FeedbackTimestamp = &t
		case "days_to_feedback":
			n := v.(int)
			row.DaysToFeedback = &n
		case "requires_review":
			row.RequiresReview = v.(bool)
		case "review_reason":
			row.ReviewReason = v.(string)
		}
	}
	r.rows[id] = row
	return nil
}

func (r *fakeFeedbackRepo) ListPending(_ context.Context, _ *gorm.DB, _ int) ([]*predtypes.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*predtypes.Feedback
	for _, row := range r.rows {
		if row.FeedbackTimestamp == nil {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFeedbackRepo) ListPendingByStudentAndType(_ context.Context, _ *gorm.DB, studentID uuid.UUID, predictionType string) ([]*predtypes.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*predtypes.Feedback
	for _, row := range r.rows {
		if row.StudentID == studentID && row.PredictionType == predictionType && row.FeedbackTimestamp == nil {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFeedbackRepo) ListNeedsReview(_ context.Context, _ *gorm.DB, _ int) ([]*predtypes.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*predtypes.Feedback
	for _, row := range r.rows {
		if row.RequiresReview {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFeedbackRepo) Stats(_ context.Context, _ *gorm.DB, _, _ string) ([]predrepos.TypeStats, error) {
	return nil, nil
}
