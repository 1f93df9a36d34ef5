package llm

import (
	"fmt"
	"strings"
)

// PromptVersion tags the enrichment prompt so stored results can be
// traced back to the template that produced them.
const PromptVersion = "v1"

// maxBodyChars bounds the article body included in the prompt.
const maxBodyChars = 8000

const enrichmentTemplate = `You are a logistics industry news analyst. Analyze the following article and respond with a single strict JSON object and nothing else. No prose, no explanations.

Required JSON fields:
- "summary_en": 2-3 sentence English summary
- "summary_zh": 2-3 sentence Chinese summary
- "transport_modes": array from ["ocean", "air", "rail", "road", "multimodal"]
- "primary_topic": short topic label, e.g. "freight_rates", "port_congestion", "carrier_results"
- "secondary_topics": array of additional topic labels
- "content_type": one of "news", "analysis", "market_report", "announcement"
- "regions": array of affected regions, e.g. ["asia", "europe", "north_america"]
- "entities": object with arrays "companies", "ports", "people", "organizations"
- "sentiment": one of "positive", "neutral", "negative", "mixed"
- "market_impact": one of "high", "medium", "low", "none"
- "urgency": one of "breaking", "high", "medium", "low"
- "key_metrics": array of {"metric", "value", "unit", "context"} for figures quoted in the article

Article language: %s
Title: %s

Body:
%s`

// BuildEnrichmentPrompt renders the versioned enrichment prompt.
// The body is truncated to keep the request within model context.
func BuildEnrichmentPrompt(title, body, language string) string {
	if language == "" {
		language = "unknown"
	}
	return fmt.Sprintf(enrichmentTemplate, language, title, TruncateBody(body))
}

// TruncateBody caps the body at the configured character budget,
// cutting on a rune boundary.
func TruncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyChars {
		return body
	}
	return strings.TrimSpace(string(runes[:maxBodyChars]))
}
