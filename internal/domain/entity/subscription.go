package entity

import (
	"slices"
	"time"
)

// Channel is a subscription delivery channel.
type Channel string

const (
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Frequency is how often a subscription is delivered.
type Frequency string

const (
	FreqRealtime Frequency = "realtime"
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
)

// Filter is the predicate attached to a subscription or a live push
// connection. Each non-empty field is an OR over its values, AND-ed with
// the other fields. UrgencyMin applies the low < medium < high ordering.
type Filter struct {
	SourceIDs      []string        `json:"source_ids,omitempty"`
	TransportModes []TransportMode `json:"transport_modes,omitempty"`
	Topics         []string        `json:"topics,omitempty"`
	Regions        []string        `json:"regions,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
	UrgencyMin     Urgency         `json:"urgency_min,omitempty"`
}

// Matches reports whether the article satisfies every non-empty filter field.
func (f Filter) Matches(a *Article) bool {
	if len(f.SourceIDs) > 0 && !slices.Contains(f.SourceIDs, a.SourceID) {
		return false
	}
	if len(f.TransportModes) > 0 && !intersects(f.TransportModes, a.Enrichment.TransportModes) {
		return false
	}
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, a.Enrichment.PrimaryTopic) {
		return false
	}
	if len(f.Regions) > 0 && !intersects(f.Regions, a.Enrichment.Regions) {
		return false
	}
	if len(f.Languages) > 0 && !slices.Contains(f.Languages, a.Language) {
		return false
	}
	if f.UrgencyMin != "" && !a.Enrichment.Urgency.AtLeast(f.UrgencyMin) {
		return false
	}
	return true
}

func intersects[T comparable](want, have []T) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// WebhookConfig is the channel configuration for webhook subscriptions.
type WebhookConfig struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

// Subscription is a persistent filter plus delivery target.
type Subscription struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Filter        Filter         `json:"filter"`
	Channel       Channel        `json:"channel"`
	WebhookConfig *WebhookConfig `json:"webhook_config,omitempty"`
	Frequency     Frequency      `json:"frequency"`
	Enabled       bool           `json:"enabled"`
	CreatedAt     time.Time      `json:"created_at,omitzero"`
	UpdatedAt     time.Time      `json:"updated_at,omitzero"`
}

// Validate checks that the channel configuration is schema-complete for
// the subscription's channel.
func (s *Subscription) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	switch s.Channel {
	case ChannelPush:
	case ChannelWebhook:
		if s.WebhookConfig == nil || s.WebhookConfig.URL == "" {
			return &ValidationError{Field: "webhook_config", Message: "webhook subscriptions require a target url"}
		}
		if s.WebhookConfig.Secret == "" {
			return &ValidationError{Field: "webhook_config", Message: "webhook subscriptions require a shared secret"}
		}
	default:
		return &ValidationError{Field: "channel", Message: "channel must be push or webhook"}
	}
	switch s.Frequency {
	case FreqRealtime, FreqDaily, FreqWeekly:
	case "":
		s.Frequency = FreqRealtime
	default:
		return &ValidationError{Field: "frequency", Message: "frequency must be realtime, daily or weekly"}
	}
	return nil
}
