package discover

import "math"

// Quality weights. Ratio components scale with the share of samples
// passing the check; the article-count component is all or nothing.
const (
	weightTitles    = 25
	weightBodies    = 25
	weightMinCount  = 20
	weightDates     = 15
	weightCanonical = 15

	minSampleBodyChars = 200
	minSampleArticles  = 3
)

// sampleStats are the per-sample counts quality scoring works from.
type sampleStats struct {
	Fetched   int
	WithTitle int
	WithBody  int
	WithDate  int
	Canonical int
}

func qualityScore(s sampleStats) int {
	if s.Fetched == 0 {
		return 0
	}
	n := float64(s.Fetched)
	score := float64(weightTitles)*float64(s.WithTitle)/n +
		float64(weightBodies)*float64(s.WithBody)/n +
		float64(weightDates)*float64(s.WithDate)/n +
		float64(weightCanonical)*float64(s.Canonical)/n
	if s.Fetched >= minSampleArticles {
		score += weightMinCount
	}
	return int(math.Round(score))
}

// combinedScore weights relevance over quality. Promotion compares the
// unrounded value against the threshold.
func combinedScore(quality, relevance int) float64 {
	return 0.4*float64(quality) + 0.6*float64(relevance)
}
