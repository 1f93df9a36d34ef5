package discover

import "strings"

// Relevance keyword tiers, English and Chinese. Tier weight times
// occurrence count, summed over all tiers, capped at 100.
const (
	weightHigh   = 3
	weightMedium = 2
	weightLow    = 1
)

var lexiconHigh = []string{
	"freight", "shipping", "logistics", "cargo", "supply chain",
	"container", "ocean freight", "air freight",
	"海运", "物流", "货运", "供应链", "集装箱", "航运",
}

var lexiconMedium = []string{
	"port", "vessel", "carrier", "customs", "tariff", "warehouse",
	"rail freight", "trucking", "forwarder", "charter", "drayage",
	"港口", "关税", "仓储", "铁路", "空运", "船公司", "报关",
}

var lexiconLow = []string{
	"trade", "export", "import", "shipment", "delivery", "transport",
	"rates", "capacity", "terminal",
	"贸易", "出口", "进口", "运输", "运价",
}

// relevanceScore counts weighted lexicon matches in the combined
// titles+bodies text of the trial-fetch samples.
func relevanceScore(text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, kw := range lexiconHigh {
		score += weightHigh * strings.Count(lower, kw)
	}
	for _, kw := range lexiconMedium {
		score += weightMedium * strings.Count(lower, kw)
	}
	for _, kw := range lexiconLow {
		score += weightLow * strings.Count(lower, kw)
	}
	if score > 100 {
		score = 100
	}
	return score
}
