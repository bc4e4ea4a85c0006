// Package score holds the pure Personal Connection Rating aggregate
// math: fold-in of new ledger scores, trend direction, and the quarterly
// PowerConfidence blend.
package score

import "math"

// SubjectType names what a score is about.
type SubjectType string

const (
	SubjectSpeaker SubjectType = "speaker"
	SubjectSponsor SubjectType = "sponsor"
	SubjectSession SubjectType = "session"
	SubjectEvent   SubjectType = "event"
)

// ValidSubjectType reports whether s is a known subject type. Read
// endpoints reject anything else before touching storage.
func ValidSubjectType(s string) bool {
	switch SubjectType(s) {
	case SubjectSpeaker, SubjectSponsor, SubjectSession, SubjectEvent:
		return true
	}
	return false
}

// trendAlpha is the recency weight of the rolling trend: each new score
// contributes this fraction of its deviation from the running mean.
const trendAlpha = 0.3

// Aggregate is the rolling summary for one subject.
type Aggregate struct {
	SampleSize int
	Mean       float64
	// Trend is the recency-weighted average deviation of recent scores
	// from the running mean. Positive means recent scores run above the
	// historical average.
	Trend float64
}

// Fold returns the aggregate updated with one new score. The zero
// Aggregate is the valid starting point for a subject with no history.
func Fold(agg Aggregate, score float64) Aggregate {
	n := agg.SampleSize + 1
	mean := agg.Mean + (score-agg.Mean)/float64(n)

	trend := agg.Trend
	if agg.SampleSize == 0 {
		trend = 0
	} else {
		trend = (1-trendAlpha)*agg.Trend + trendAlpha*(score-agg.Mean)
	}

	return Aggregate{SampleSize: n, Mean: mean, Trend: trend}
}

// Direction classifies the trend as rising, falling, or steady. Small
// deviations stay steady so a single middling score does not flip the
// reported direction.
func (a Aggregate) Direction() string {
	const epsilon = 0.25
	switch {
	case a.Trend > epsilon:
		return "rising"
	case a.Trend < -epsilon:
		return "falling"
	default:
		return "steady"
	}
}

// PowerConfidence blends the quarterly aggregate into the partner-level
// score: the mean scaled to 0-100, a momentum modifier from the trend,
// and a small bonus per earned badge. The result is clamped to 0-100.
func PowerConfidence(agg Aggregate, badges int) float64 {
	if agg.SampleSize == 0 {
		return 0
	}

	base := agg.Mean * 10
	momentum := agg.Trend * 5
	bonus := float64(badges) * 2

	score := base + momentum + bonus
	return math.Max(0, math.Min(100, score))
}

// Badges earned from volume and quality thresholds.
func Badges(agg Aggregate) int {
	badges := 0
	if agg.SampleSize >= 10 {
		badges++
	}
	if agg.SampleSize >= 50 {
		badges++
	}
	if agg.Mean >= 8 && agg.SampleSize >= 5 {
		badges++
	}
	return badges
}
