package prediction

import (
	"math"
	"strings"
)

const epsilon = 1e-9

// Observation is a later-observed ground truth for a prediction.
type Observation struct {
	Value string
	Score float64
}

// Outcome is the result of comparing a prediction with its ground truth.
type Outcome struct {
	Correct         bool
	ErrorMargin     float64
	ErrorPercentage float64
	AccuracyLevel   string
}

// Comparator measures one prediction family against its ground truth. The six
// families share a single feedback table; the strategy is selected by the
// prediction_type tag rather than a type hierarchy.
type Comparator func(predictedValue string, predictedScore float64, actual Observation) Outcome

var comparators = map[string]Comparator{
	TypeRisk:      compareNumeric,
	TypeProgreso:  compareNumeric,
	TypeCarrera:   compareCategorical,
	TypeTendencia: compareCategorical,
	TypeCluster:   compareCategorical,
	TypeAnomaly:   compareAnomaly,
}

// ComparatorFor returns the comparator for a prediction type; ok is false for
// unknown types.
func ComparatorFor(predictionType string) (Comparator, bool) {
	c, ok := comparators[predictionType]
	return c, ok
}

// Numeric/ordinal families (risk, progreso): absolute error on the score with a
// relative percentage, bucketed into the fixed accuracy bands.
func compareNumeric(_ string, predictedScore float64, actual Observation) Outcome {
	margin := math.Abs(actual.Score - predictedScore)
	pct := margin / math.Max(math.Abs(actual.Score), epsilon) * 100
	return Outcome{
		Correct:         pct <= 15,
		ErrorMargin:     margin,
		ErrorPercentage: pct,
		AccuracyLevel:   bandFor(pct),
	}
}

// Categorical families (carrera, tendencia, cluster): exact label match, error
// percentage collapses to 0 or 100 and accuracy follows the correctness flag.
func compareCategorical(predictedValue string, _ float64, actual Observation) Outcome {
	correct := strings.EqualFold(strings.TrimSpace(predictedValue), strings.TrimSpace(actual.Value))
	out := Outcome{Correct: correct, AccuracyLevel: AccuracyPoor, ErrorPercentage: 100}
	if correct {
		out.AccuracyLevel = AccuracyExcellent
		out.ErrorPercentage = 0
	}
	return out
}

// Anomaly: correctness is a match on the boolean flag; the margin still carries
// the anomaly-score delta so drift is measurable even when the flag agrees.
func compareAnomaly(predictedValue string, predictedScore float64, actual Observation) Outcome {
	correct := parseAnomalyFlag(predictedValue) == parseAnomalyFlag(actual.Value)
	out := Outcome{
		Correct:         correct,
		ErrorMargin:     math.Abs(actual.Score - predictedScore),
		AccuracyLevel:   AccuracyPoor,
		ErrorPercentage: 100,
	}
	if correct {
		out.AccuracyLevel = AccuracyExcellent
		out.ErrorPercentage = 0
	}
	return out
}

func parseAnomalyFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "anomaly", "anomalia", "anomalo":
		return true
	default:
		return false
	}
}

func bandFor(errorPercentage float64) string {
	switch {
	case errorPercentage <= 5:
		return AccuracyExcellent
	case errorPercentage <= 15:
		return AccuracyGood
	case errorPercentage <= 30:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}
