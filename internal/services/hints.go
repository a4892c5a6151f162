package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	monrepos "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/data/repos/monitoring"
	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	pkgerrors "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/pkg/errors"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// HintGenerator produces scaffolding hints from risk snapshots and explicit
// requests. Socratic hints walk an adaptive guidance ladder per (attempt,
// topic): ignored or ineffective hints step toward more guided, hints the
// student used effectively step toward more open-ended. High-risk snapshots
// with a clear dominant signal get a targeted kind instead: a resource hint
// for material dependency, a worked example for repeated errors, a concept
// refresher for correction loops.
type HintGenerator interface {
	OnSnapshot(ctx context.Context, snap types.RiskSnapshot) error
	// Request generates a hint on demand, regardless of the current risk
	// level. With a topic it walks the Socratic ladder; without one it falls
	// back to a direction hint, or a validation nudge when the attempt is
	// nearly done at low risk.
	Request(ctx context.Context, attemptID uuid.UUID, topic string) (*types.Hint, error)
	MarkShown(ctx context.Context, hintID uuid.UUID) (*types.Hint, error)
	// RecordInteraction closes the hint with the student's reaction: utilizada,
	// ignorada or no_efectiva.
	RecordInteraction(ctx context.Context, hintID uuid.UUID, estado string, effective *bool) (*types.Hint, error)
	// Oversight lets a teacher hide or restore a hint. The record is kept.
	Oversight(ctx context.Context, hintID, teacherID uuid.UUID, visible bool) (*types.Hint, error)
	ListPending(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.Hint, error)
}

type hintGenerator struct {
	hints    monrepos.HintRepo
	attempts monrepos.AttemptRepo
	cfg      EngineConfig
	locks    *keyedMutex
	log      *logger.Logger
}

func NewHintGenerator(hints monrepos.HintRepo, attempts monrepos.AttemptRepo, cfg EngineConfig, baseLog *logger.Logger) HintGenerator {
	return &hintGenerator{
		hints:    hints,
		attempts: attempts,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		log:      baseLog.With("service", "HintGenerator"),
	}
}

func (s *hintGenerator) OnSnapshot(ctx context.Context, snap types.RiskSnapshot) error {
	if snap.Score < s.cfg.EncouragementThreshold {
		return nil
	}

	dom, hasDom := snap.Dominant()
	topic := "general"
	if hasDom {
		topic = dom.Code
	}

	if snap.Score <= s.cfg.HintThreshold {
		_, err := s.generateMotivational(ctx, snap.AttemptID, snap.StudentID, snap.Score)
		return err
	}

	if hasDom {
		switch dom.Code {
		case types.IndicatorResourceDependency:
			_, err := s.generateStatic(ctx, snap.AttemptID, snap.StudentID, types.HintRecurso, topic,
				"Quédate con una sola fuente: relee la sección del material que trata el punto donde estás trabado y resume su idea en dos líneas antes de responder.",
				fmt.Sprintf("consulta constante de material con riesgo %.2f", snap.Score), snap.Score)
			return err
		case types.IndicatorRepeatedErrors:
			_, err := s.generateStatic(ctx, snap.AttemptID, snap.StudentID, types.HintEjemplo, topic,
				"El mismo error sigue apareciendo. Toma tu último intento y compáralo paso a paso con un ejemplo resuelto: identifica los datos, aplica la regla una sola vez y revisa el resultado intermedio.",
				fmt.Sprintf("errores repetidos con riesgo %.2f", snap.Score), snap.Score)
			return err
		case types.IndicatorCorrectionLoop:
			_, err := s.generateStatic(ctx, snap.AttemptID, snap.StudentID, types.HintConcepto, topic,
				"Antes de corregir otra vez, vuelve a la base: escribe con tus palabras qué pide el ejercicio y qué concepto lo resuelve.",
				fmt.Sprintf("ciclos de corrección con riesgo %.2f", snap.Score), snap.Score)
			return err
		}
	}
	_, err := s.generateSocratic(ctx, snap.AttemptID, snap.StudentID, topic, snap.Score)
	return err
}

func (s *hintGenerator) Request(ctx context.Context, attemptID uuid.UUID, topic string) (*types.Hint, error) {
	if attemptID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	attempt, err := s.attempts.GetByID(ctx, nil, attemptID)
	if err != nil {
		return nil, err
	}
	if topic != "" {
		return s.generateSocratic(ctx, attempt.ID, attempt.StudentID, topic, attempt.RiskScore)
	}
	// Unspecific request. A student close to done and at low risk gets a
	// validation nudge; everyone else gets a direction hint to narrow the
	// question down.
	if attempt.RiskScore < s.cfg.EncouragementThreshold && attempt.EstimatedProgress >= 0.8 {
		return s.generateStatic(ctx, attempt.ID, attempt.StudentID, types.HintValidacion, "validacion",
			"Vas bien encaminado. Antes de continuar, prueba tu última respuesta con un caso sencillo y confirma que el resultado tiene sentido.",
			fmt.Sprintf("progreso %.0f%% con riesgo bajo", attempt.EstimatedProgress*100), attempt.RiskScore)
	}
	return s.generateStatic(ctx, attempt.ID, attempt.StudentID, types.HintOrientacion, "orientacion",
		"Pediste ayuda sin un tema concreto: relee el enunciado, separa lo que ya sabes de lo que te falta y vuelve a pedir una pista sobre esa parte.",
		"solicitud sin tema", attempt.RiskScore)
}

// generateSocratic creates a guided-question hint at the level the ladder
// dictates. Duplicate content for the same (attempt, topic) is skipped.
func (s *hintGenerator) generateSocratic(ctx context.Context, attemptID, studentID uuid.UUID, topic string, score float64) (*types.Hint, error) {
	key := attemptID.String() + "/" + topic
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	level, err := s.nextGuidanceLevel(ctx, attemptID, topic)
	if err != nil {
		return nil, err
	}

	content, questions := socraticContent(topic, level)
	hash := contentHash(content)
	exists, err := s.hints.ContentExists(ctx, nil, attemptID, topic, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.Debug("duplicate hint content skipped", "attempt_id", attemptID, "topic", topic)
		return nil, nil
	}

	hint := &types.Hint{
		ID:            uuid.New(),
		AttemptID:     attemptID,
		StudentID:     studentID,
		Type:          types.HintSocratico,
		Topic:         topic,
		Content:       content,
		Reasoning:     fmt.Sprintf("riesgo %.2f sobre el tema %s", score, topic),
		ContentHash:   hash,
		GuidanceLevel: level,
		Relevance:     clamp01(score),
		Specificity:   specificityFor(level),
		Estado:        types.HintGenerada,
		Visible:       true,
	}
	if len(questions) > 0 {
		hint.GuideQuestions = mustJSON(questions)
	}
	if err := s.hints.Create(ctx, nil, hint); err != nil {
		return nil, err
	}
	s.log.Info("socratic hint generated",
		"hint_id", hint.ID, "attempt_id", attemptID, "topic", topic, "guidance_level", level)
	return hint, nil
}

func (s *hintGenerator) generateMotivational(ctx context.Context, attemptID, studentID uuid.UUID, score float64) (*types.Hint, error) {
	return s.generateStatic(ctx, attemptID, studentID, types.HintMotivacion, "animo",
		"Vas avanzando. Respira, repasa lo que ya resolviste y continúa con el siguiente paso.",
		fmt.Sprintf("riesgo moderado %.2f", score), score)
}

// generateStatic creates a fixed-content hint of the given kind, with the same
// dedup rule as socratic hints: identical content for the same (attempt,
// topic) is generated once.
func (s *hintGenerator) generateStatic(ctx context.Context, attemptID, studentID uuid.UUID, hintType, topic, content, reasoning string, score float64) (*types.Hint, error) {
	key := attemptID.String() + "/" + topic
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	hash := contentHash(content)
	exists, err := s.hints.ContentExists(ctx, nil, attemptID, topic, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	hint := &types.Hint{
		ID:          uuid.New(),
		AttemptID:   attemptID,
		StudentID:   studentID,
		Type:        hintType,
		Topic:       topic,
		Content:     content,
		Reasoning:   reasoning,
		ContentHash: hash,
		Relevance:   clamp01(score),
		Estado:      types.HintGenerada,
		Visible:     true,
	}
	if err := s.hints.Create(ctx, nil, hint); err != nil {
		return nil, err
	}
	s.log.Info("hint generated",
		"hint_id", hint.ID, "attempt_id", attemptID, "type", hintType, "topic", topic)
	return hint, nil
}

// nextGuidanceLevel walks the ladder from the last hint on the same key.
// Level 1 is the most guided; an ignored or ineffective hint means the student
// needed more direction, so the next one steps down.
func (s *hintGenerator) nextGuidanceLevel(ctx context.Context, attemptID uuid.UUID, topic string) (int, error) {
	last, err := s.hints.LastByAttemptTypeTopic(ctx, nil, attemptID, types.HintSocratico, topic)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return types.GuidanceDefault, nil
	}
	level := last.GuidanceLevel
	if level == 0 {
		level = types.GuidanceDefault
	}
	switch last.Estado {
	case types.HintIgnorada, types.HintNoEfectiva:
		level--
	case types.HintUtilizada:
		if last.Effective != nil && *last.Effective {
			level++
		}
	}
	if level < types.GuidanceMin {
		level = types.GuidanceMin
	}
	if level > types.GuidanceMax {
		level = types.GuidanceMax
	}
	return level, nil
}

func (s *hintGenerator) MarkShown(ctx context.Context, hintID uuid.UUID) (*types.Hint, error) {
	hint, err := s.hints.GetByID(ctx, nil, hintID)
	if err != nil {
		return nil, err
	}
	if hint.Estado == types.HintMostrada {
		return hint, nil
	}
	if !types.CanTransitionHint(hint.Estado, types.HintMostrada) {
		return nil, pkgerrors.ErrInvalidTransition
	}
	now := time.Now().UTC()
	hint.Estado = types.HintMostrada
	hint.ShownAt = &now
	if err := s.hints.Update(ctx, nil, hint); err != nil {
		return nil, err
	}
	return hint, nil
}

func (s *hintGenerator) RecordInteraction(ctx context.Context, hintID uuid.UUID, estado string, effective *bool) (*types.Hint, error) {
	switch estado {
	case types.HintUtilizada, types.HintIgnorada, types.HintNoEfectiva:
	default:
		return nil, pkgerrors.ErrInvalidArgument
	}
	hint, err := s.hints.GetByID(ctx, nil, hintID)
	if err != nil {
		return nil, err
	}
	if !types.CanTransitionHint(hint.Estado, estado) {
		return nil, pkgerrors.ErrInvalidTransition
	}
	now := time.Now().UTC()
	hint.Estado = estado
	hint.RespondedAt = &now
	hint.Effective = effective
	if err := s.hints.Update(ctx, nil, hint); err != nil {
		return nil, err
	}
	return hint, nil
}

func (s *hintGenerator) Oversight(ctx context.Context, hintID, teacherID uuid.UUID, visible bool) (*types.Hint, error) {
	if teacherID == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	hint, err := s.hints.GetByID(ctx, nil, hintID)
	if err != nil {
		return nil, err
	}
	hint.Visible = visible
	hint.ReviewedBy = &teacherID
	if err := s.hints.Update(ctx, nil, hint); err != nil {
		return nil, err
	}
	s.log.Info("hint oversight applied", "hint_id", hintID, "teacher_id", teacherID, "visible", visible)
	return hint, nil
}

func (s *hintGenerator) ListPending(ctx context.Context, studentID uuid.UUID, limit int) ([]*types.Hint, error) {
	return s.hints.ListPendingByStudent(ctx, nil, studentID, limit)
}

// socraticContent builds the guided questions for a guidance level. Lower
// levels spell more of the path out; level 5 barely nudges.
func socraticContent(topic string, level int) (string, []string) {
	var questions []string
	switch level {
	case 1:
		questions = []string{
			"¿Cuál es exactamente el dato que te pide el enunciado?",
			"¿Qué fórmula o regla vimos que conecta esos datos?",
			"Aplica la regla paso a paso: ¿cuál es el primer paso?",
		}
	case 2:
		questions = []string{
			"¿Qué datos tienes y cuál te falta?",
			"¿Qué procedimiento usaste en el ejercicio anterior parecido a este?",
		}
	case 3:
		questions = []string{
			"¿Qué concepto está detrás de esta pregunta?",
			"¿Cómo comprobarías que tu respuesta tiene sentido?",
		}
	case 4:
		questions = []string{
			"¿Hay otro camino para llegar al mismo resultado?",
		}
	default:
		questions = []string{
			"¿Qué pregunta te harías a ti mismo antes de responder?",
		}
	}
	content := fmt.Sprintf("Antes de continuar con %s, piensa en esto: %s", topic, questions[0])
	return content, questions
}

func specificityFor(level int) float64 {
	// Level 1 is fully specific, level 5 fully open.
	return clamp01(1 - float64(level-1)/float64(types.GuidanceMax-1))
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
