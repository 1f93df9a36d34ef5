package llm

import (
	"strings"
	"testing"

	"logistics-news/internal/domain/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{
	"summary_en": "Spot rates rose sharply on transpacific lanes.",
	"summary_zh": "跨太平洋航线即期运价大幅上涨。",
	"transport_modes": ["Ocean", "ocean", "rail"],
	"primary_topic": "Freight_Rates",
	"secondary_topics": ["capacity", "Capacity", "contracts"],
	"content_type": "News",
	"regions": ["Asia", "north_america"],
	"entities": {
		"companies": ["Maersk", "maersk", "CMA CGM"],
		"ports": ["Shanghai", "Los Angeles"],
		"people": [],
		"organizations": ["FMC"]
	},
	"sentiment": "negative",
	"market_impact": "high",
	"urgency": "high",
	"key_metrics": [{"metric": "SCFI", "value": "1890", "unit": "points", "context": "weekly index"}]
}`

func TestParseEnrichment(t *testing.T) {
	e, err := ParseEnrichment(validReply)
	require.NoError(t, err)

	assert.Equal(t, entity.SentimentNegative, e.Sentiment)
	assert.Equal(t, entity.UrgencyHigh, e.Urgency)
	assert.Equal(t, entity.ImpactHigh, e.MarketImpact)
	assert.Equal(t, "freight_rates", e.PrimaryTopic)
	assert.Equal(t, "news", e.ContentType)
	// Sets lowercased and de-duplicated, order preserved.
	assert.Equal(t, []entity.TransportMode{entity.ModeOcean, entity.ModeRail}, e.TransportModes)
	assert.Equal(t, []string{"capacity", "contracts"}, e.SecondaryTopics)
	assert.Equal(t, []string{"asia", "north_america"}, e.Regions)
	// Entity names keep their case but duplicates collapse.
	assert.Equal(t, []string{"Maersk", "CMA CGM"}, e.Entities.Companies)
	require.Len(t, e.KeyMetrics, 1)
	assert.Equal(t, "SCFI", e.KeyMetrics[0].Metric)
}

func TestParseEnrichment_FullStruct(t *testing.T) {
	e, err := ParseEnrichment(validReply)
	require.NoError(t, err)

	want := entity.Enrichment{
		SummaryEN:       "Spot rates rose sharply on transpacific lanes.",
		SummaryZH:       "跨太平洋航线即期运价大幅上涨。",
		TransportModes:  []entity.TransportMode{entity.ModeOcean, entity.ModeRail},
		PrimaryTopic:    "freight_rates",
		SecondaryTopics: []string{"capacity", "contracts"},
		ContentType:     "news",
		Regions:         []string{"asia", "north_america"},
		Entities: entity.Entities{
			Companies:     []string{"Maersk", "CMA CGM"},
			Ports:         []string{"Shanghai", "Los Angeles"},
			People:        []string{},
			Organizations: []string{"FMC"},
		},
		Sentiment:    entity.SentimentNegative,
		MarketImpact: entity.ImpactHigh,
		Urgency:      entity.UrgencyHigh,
		KeyMetrics: []entity.KeyMetric{
			{Metric: "SCFI", Value: "1890", Unit: "points", Context: "weekly index"},
		},
	}
	if diff := cmp.Diff(want, *e); diff != "" {
		t.Errorf("enrichment mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEnrichment_FencedBlock(t *testing.T) {
	fenced := "```json\n" + validReply + "\n```"
	e, err := ParseEnrichment(fenced)
	require.NoError(t, err)
	assert.Equal(t, entity.SentimentNegative, e.Sentiment)

	bare := "```\n" + validReply + "\n```"
	_, err = ParseEnrichment(bare)
	assert.NoError(t, err)
}

func TestParseEnrichment_Whitespace(t *testing.T) {
	_, err := ParseEnrichment("\n\n  " + validReply + "  \n")
	assert.NoError(t, err)
}

func TestParseEnrichment_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the article is about shipping rates"},
		{"prose around json", "Here is the analysis: " + validReply},
		{"trailing prose", validReply + "\nHope this helps!"},
		{"invalid sentiment", strings.Replace(validReply, `"sentiment": "negative"`, `"sentiment": "maybe"`, 1)},
		{"invalid urgency", strings.Replace(validReply, `"urgency": "high"`, `"urgency": "urgent"`, 1)},
		{"invalid transport mode", strings.Replace(validReply, `"rail"`, `"pipeline"`, 1)},
		{"missing summary_en", strings.Replace(validReply, `"summary_en": "Spot rates rose sharply on transpacific lanes.",`, "", 1)},
		{"missing summary_zh", strings.Replace(validReply, `"summary_zh": "跨太平洋航线即期运价大幅上涨。",`, "", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnrichment(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestParseEnrichment_MissingMarketImpactDefaults(t *testing.T) {
	raw := strings.Replace(validReply, `"market_impact": "high",`, "", 1)
	e, err := ParseEnrichment(raw)
	require.NoError(t, err)
	assert.Equal(t, entity.ImpactNone, e.MarketImpact)
}

func TestBuildEnrichmentPrompt_Truncation(t *testing.T) {
	body := strings.Repeat("货", 9000)
	prompt := BuildEnrichmentPrompt("title", body, "zh")
	assert.Less(t, len([]rune(prompt)), 9000)
	assert.Contains(t, prompt, "Article language: zh")

	short := BuildEnrichmentPrompt("title", "short body", "")
	assert.Contains(t, short, "Article language: unknown")
	assert.Contains(t, short, "short body")
}

func TestTruncateBody(t *testing.T) {
	assert.Equal(t, "abc", TruncateBody("abc"))
	long := strings.Repeat("x", 8001)
	assert.Len(t, TruncateBody(long), 8000)
}
