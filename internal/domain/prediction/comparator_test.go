package prediction

import (
	"math"
	"testing"
)

func TestComparatorForKnownTypes(t *testing.T) {
	for _, typ := range []string{TypeRisk, TypeCarrera, TypeTendencia, TypeProgreso, TypeCluster, TypeAnomaly} {
		if _, ok := ComparatorFor(typ); !ok {
			t.Fatalf("no comparator for %s", typ)
		}
	}
	if _, ok := ComparatorFor("astrologia"); ok {
		t.Fatalf("comparator returned for unknown type")
	}
}

func TestNumericComparatorBands(t *testing.T) {
	cmp, _ := ComparatorFor(TypeProgreso)
	cases := []struct {
		predicted float64
		actual    float64
		wantBand  string
		wantOK    bool
	}{
		{80, 80, AccuracyExcellent, true},
		{78, 80, AccuracyExcellent, true},  // 2.5%
		{72, 80, AccuracyGood, true},       // 10%
		{60, 80, AccuracyFair, false},      // 25%
		{40, 80, AccuracyPoor, false},      // 50%
	}
	for _, tc := range cases {
		out := cmp("", tc.predicted, Observation{Score: tc.actual})
		if out.AccuracyLevel != tc.wantBand {
			t.Fatalf("predicted %v vs %v: band %q, want %q", tc.predicted, tc.actual, out.AccuracyLevel, tc.wantBand)
		}
		if out.Correct != tc.wantOK {
			t.Fatalf("predicted %v vs %v: correct %v, want %v", tc.predicted, tc.actual, out.Correct, tc.wantOK)
		}
	}
}

func TestNumericComparatorMargin(t *testing.T) {
	cmp, _ := ComparatorFor(TypeRisk)
	out := cmp("", 0.78, Observation{Score: 0.80})
	if math.Abs(out.ErrorMargin-0.02) > 1e-9 {
		t.Fatalf("margin = %v, want 0.02", out.ErrorMargin)
	}
	if math.Abs(out.ErrorPercentage-2.5) > 1e-9 {
		t.Fatalf("percentage = %v, want 2.5", out.ErrorPercentage)
	}
}

func TestNumericComparatorZeroActual(t *testing.T) {
	cmp, _ := ComparatorFor(TypeProgreso)
	out := cmp("", 10, Observation{Score: 0})
	if out.AccuracyLevel != AccuracyPoor {
		t.Fatalf("zero actual with nonzero prediction should be poor, got %q", out.AccuracyLevel)
	}
}

func TestCategoricalComparator(t *testing.T) {
	cmp, _ := ComparatorFor(TypeCarrera)

	out := cmp("Ingeniería", 0, Observation{Value: " ingeniería "})
	if !out.Correct || out.AccuracyLevel != AccuracyExcellent || out.ErrorPercentage != 0 {
		t.Fatalf("case-insensitive match failed: %+v", out)
	}

	out = cmp("Ingeniería", 0, Observation{Value: "Medicina"})
	if out.Correct || out.AccuracyLevel != AccuracyPoor || out.ErrorPercentage != 100 {
		t.Fatalf("mismatch not graded poor: %+v", out)
	}
}

func TestAnomalyComparator(t *testing.T) {
	cmp, _ := ComparatorFor(TypeAnomaly)

	out := cmp("true", 0.9, Observation{Value: "anomalia", Score: 0.85})
	if !out.Correct {
		t.Fatalf("matching flags graded incorrect")
	}
	if math.Abs(out.ErrorMargin-0.05) > 1e-9 {
		t.Fatalf("score delta = %v, want 0.05", out.ErrorMargin)
	}

	out = cmp("true", 0.9, Observation{Value: "normal", Score: 0.1})
	if out.Correct || out.AccuracyLevel != AccuracyPoor {
		t.Fatalf("flag mismatch not graded poor: %+v", out)
	}
}
