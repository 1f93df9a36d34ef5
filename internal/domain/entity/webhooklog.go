package entity

import "time"

// DeliveryStatus is the terminal outcome of one webhook delivery attempt.
type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// WebhookDelivery records a single webhook POST attempt. One row is
// written per attempt, so a fully retried failure produces three rows.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	ArticleID      string
	Attempt        int
	Status         DeliveryStatus
	HTTPStatus     int
	Error          string
	DurationMS     int64
	CreatedAt      time.Time
}
