package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"logistics-news/internal/domain/entity"
)

// enrichmentResponse mirrors the JSON object the prompt requests.
type enrichmentResponse struct {
	SummaryEN       string   `json:"summary_en"`
	SummaryZH       string   `json:"summary_zh"`
	TransportModes  []string `json:"transport_modes"`
	PrimaryTopic    string   `json:"primary_topic"`
	SecondaryTopics []string `json:"secondary_topics"`
	ContentType     string   `json:"content_type"`
	Regions         []string `json:"regions"`
	Entities        struct {
		Companies     []string `json:"companies"`
		Ports         []string `json:"ports"`
		People        []string `json:"people"`
		Organizations []string `json:"organizations"`
	} `json:"entities"`
	Sentiment    string             `json:"sentiment"`
	MarketImpact string             `json:"market_impact"`
	Urgency      string             `json:"urgency"`
	KeyMetrics   []entity.KeyMetric `json:"key_metrics"`
}

// ParseEnrichment decodes and validates an LLM enrichment reply.
// Leading/trailing whitespace and a fenced code block wrapper are
// tolerated; any other prose around the JSON is rejected. Validation
// failures return ErrInvalidResponse.
func ParseEnrichment(raw string) (*entity.Enrichment, error) {
	cleaned := stripFences(strings.TrimSpace(raw))

	var resp enrichmentResponse
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after JSON object", ErrInvalidResponse)
	}

	if strings.TrimSpace(resp.SummaryEN) == "" {
		return nil, fmt.Errorf("%w: summary_en missing", ErrInvalidResponse)
	}
	if strings.TrimSpace(resp.SummaryZH) == "" {
		return nil, fmt.Errorf("%w: summary_zh missing", ErrInvalidResponse)
	}

	sentiment := entity.Sentiment(strings.ToLower(strings.TrimSpace(resp.Sentiment)))
	switch sentiment {
	case entity.SentimentPositive, entity.SentimentNegative, entity.SentimentNeutral, entity.SentimentMixed:
	default:
		return nil, fmt.Errorf("%w: sentiment %q", ErrInvalidResponse, resp.Sentiment)
	}

	urgency := entity.Urgency(strings.ToLower(strings.TrimSpace(resp.Urgency)))
	switch urgency {
	case entity.UrgencyBreaking, entity.UrgencyHigh, entity.UrgencyMedium, entity.UrgencyLow:
	default:
		return nil, fmt.Errorf("%w: urgency %q", ErrInvalidResponse, resp.Urgency)
	}

	impact := entity.MarketImpact(strings.ToLower(strings.TrimSpace(resp.MarketImpact)))
	switch impact {
	case entity.ImpactHigh, entity.ImpactMedium, entity.ImpactLow, entity.ImpactNone:
	case "":
		impact = entity.ImpactNone
	default:
		return nil, fmt.Errorf("%w: market_impact %q", ErrInvalidResponse, resp.MarketImpact)
	}

	modes := make([]entity.TransportMode, 0, len(resp.TransportModes))
	for _, m := range normalizeSet(resp.TransportModes) {
		mode := entity.TransportMode(m)
		switch mode {
		case entity.ModeOcean, entity.ModeAir, entity.ModeRail, entity.ModeRoad, entity.ModeMultimodal:
			modes = append(modes, mode)
		default:
			return nil, fmt.Errorf("%w: transport_mode %q", ErrInvalidResponse, m)
		}
	}

	return &entity.Enrichment{
		SummaryEN:       strings.TrimSpace(resp.SummaryEN),
		SummaryZH:       strings.TrimSpace(resp.SummaryZH),
		TransportModes:  modes,
		PrimaryTopic:    strings.ToLower(strings.TrimSpace(resp.PrimaryTopic)),
		SecondaryTopics: normalizeSet(resp.SecondaryTopics),
		ContentType:     strings.ToLower(strings.TrimSpace(resp.ContentType)),
		Regions:         normalizeSet(resp.Regions),
		Entities: entity.Entities{
			Companies:     dedupeStrings(resp.Entities.Companies),
			Ports:         dedupeStrings(resp.Entities.Ports),
			People:        dedupeStrings(resp.Entities.People),
			Organizations: dedupeStrings(resp.Entities.Organizations),
		},
		Sentiment:    sentiment,
		MarketImpact: impact,
		Urgency:      urgency,
		KeyMetrics:   resp.KeyMetrics,
	}, nil
}

// stripFences removes a ```json ... ``` (or bare ```) wrapper.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json" or empty).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalizeSet lowercases, trims and de-duplicates preserving order.
func normalizeSet(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// dedupeStrings trims and de-duplicates without changing case; entity
// names keep their capitalization.
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
