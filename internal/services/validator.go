package services

import (
	"fmt"
	"strings"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/prediction"
)

// CoherenceIssue flags a contradiction between two prediction families for
// the same student.
type CoherenceIssue struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// CoherenceResult is the outcome of cross-checking a student's latest
// predictions against each other.
type CoherenceResult struct {
	Coherent bool             `json:"coherent"`
	Issues   []CoherenceIssue `json:"issues,omitempty"`
}

// ValidateCoherence cross-checks one student's prediction set. A high risk
// score next to a rising trend, or a high-performing cluster next to high
// risk, does not invalidate either prediction on its own but is exactly the
// kind of disagreement a reviewer should look at.
func ValidateCoherence(predictions map[string]ModelOutput) CoherenceResult {
	res := CoherenceResult{Coherent: true}
	add := func(rule, detail string) {
		res.Coherent = false
		res.Issues = append(res.Issues, CoherenceIssue{Rule: rule, Detail: detail})
	}

	risk, hasRisk := predictions[types.TypeRisk]
	trend, hasTrend := predictions[types.TypeTendencia]
	cluster, hasCluster := predictions[types.TypeCluster]
	progreso, hasProgreso := predictions[types.TypeProgreso]

	if hasRisk && hasTrend {
		rising := strings.EqualFold(strings.TrimSpace(trend.Value), "ascendente") ||
			strings.EqualFold(strings.TrimSpace(trend.Value), "mejorando")
		if risk.Score >= 0.7 && rising {
			add("riesgo_vs_tendencia",
				fmt.Sprintf("riesgo %.2f con tendencia %q", risk.Score, trend.Value))
		}
		falling := strings.EqualFold(strings.TrimSpace(trend.Value), "descendente") ||
			strings.EqualFold(strings.TrimSpace(trend.Value), "empeorando")
		if risk.Score <= 0.2 && falling {
			add("riesgo_vs_tendencia",
				fmt.Sprintf("riesgo %.2f con tendencia %q", risk.Score, trend.Value))
		}
	}

	if hasRisk && hasCluster {
		high := strings.Contains(strings.ToLower(cluster.Value), "alto") ||
			strings.Contains(strings.ToLower(cluster.Value), "destacado")
		if risk.Score >= 0.7 && high {
			add("riesgo_vs_cluster",
				fmt.Sprintf("riesgo %.2f con cluster %q", risk.Score, cluster.Value))
		}
	}

	if hasRisk && hasProgreso {
		if risk.Score >= 0.7 && progreso.Score >= 80 {
			add("riesgo_vs_progreso",
				fmt.Sprintf("riesgo %.2f con progreso previsto %.0f", risk.Score, progreso.Score))
		}
	}

	return res
}
