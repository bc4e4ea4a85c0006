package score

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFoldSingleScore(t *testing.T) {
	agg := Fold(Aggregate{}, 8)
	if agg.SampleSize != 1 {
		t.Fatalf("sample size = %d, want 1", agg.SampleSize)
	}
	if !almostEqual(agg.Mean, 8) {
		t.Fatalf("mean = %f, want 8", agg.Mean)
	}
	if !almostEqual(agg.Trend, 0) {
		t.Fatalf("first score must not establish a trend, got %f", agg.Trend)
	}
}

func TestFoldRunningMean(t *testing.T) {
	agg := Aggregate{}
	for _, score := range []float64{6, 8, 10} {
		agg = Fold(agg, score)
	}
	if agg.SampleSize != 3 {
		t.Fatalf("sample size = %d, want 3", agg.SampleSize)
	}
	if !almostEqual(agg.Mean, 8) {
		t.Fatalf("mean = %f, want 8", agg.Mean)
	}
	if agg.Trend <= 0 {
		t.Fatalf("scores climbing above the mean should trend positive, got %f", agg.Trend)
	}
}

func TestFoldFallingScoresTrendNegative(t *testing.T) {
	agg := Aggregate{}
	for _, score := range []float64{10, 9, 4, 3, 2} {
		agg = Fold(agg, score)
	}
	if agg.Trend >= 0 {
		t.Fatalf("collapsing scores should trend negative, got %f", agg.Trend)
	}
	if agg.Direction() != "falling" {
		t.Fatalf("direction = %s, want falling", agg.Direction())
	}
}

func TestDirectionSteadyNearZero(t *testing.T) {
	agg := Aggregate{SampleSize: 4, Mean: 7, Trend: 0.1}
	if agg.Direction() != "steady" {
		t.Fatalf("direction = %s, want steady", agg.Direction())
	}
}

func TestPowerConfidence(t *testing.T) {
	if got := PowerConfidence(Aggregate{}, 0); got != 0 {
		t.Fatalf("no history should score 0, got %f", got)
	}

	steady := PowerConfidence(Aggregate{SampleSize: 20, Mean: 8}, 0)
	if !almostEqual(steady, 80) {
		t.Fatalf("mean 8 with no momentum = %f, want 80", steady)
	}

	rising := PowerConfidence(Aggregate{SampleSize: 20, Mean: 8, Trend: 1}, 0)
	if rising <= steady {
		t.Fatalf("positive momentum must raise the score: %f vs %f", rising, steady)
	}

	capped := PowerConfidence(Aggregate{SampleSize: 100, Mean: 10, Trend: 3}, 3)
	if capped != 100 {
		t.Fatalf("score must clamp at 100, got %f", capped)
	}
}

func TestBadges(t *testing.T) {
	if got := Badges(Aggregate{SampleSize: 3, Mean: 9}); got != 0 {
		t.Fatalf("too few samples for any badge, got %d", got)
	}
	if got := Badges(Aggregate{SampleSize: 12, Mean: 8.5}); got != 2 {
		t.Fatalf("volume + quality = %d, want 2", got)
	}
	if got := Badges(Aggregate{SampleSize: 60, Mean: 9}); got != 3 {
		t.Fatalf("all badges = %d, want 3", got)
	}
}
