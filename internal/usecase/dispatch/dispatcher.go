// Package dispatch fans completed articles out to live push
// connections and realtime webhook subscriptions.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
)

// Broadcaster is the live-connection side of fan-out.
type Broadcaster interface {
	Broadcast(article *entity.Article)
}

// WebhookQueue is the delivery side of fan-out.
type WebhookQueue interface {
	Enqueue(sub *entity.Subscription, article *entity.Article)
}

// Dispatcher implements the enrichment pipeline's Publisher.
type Dispatcher struct {
	subscriptions repository.SubscriptionRepository
	broadcaster   Broadcaster
	webhooks      WebhookQueue
}

// New creates a Dispatcher. Either target may be nil when that channel
// is disabled.
func New(subscriptions repository.SubscriptionRepository, broadcaster Broadcaster, webhooks WebhookQueue) *Dispatcher {
	return &Dispatcher{
		subscriptions: subscriptions,
		broadcaster:   broadcaster,
		webhooks:      webhooks,
	}
}

// Publish fans one completed article out. Push delivery is best-effort
// and synchronous; webhook deliveries are enqueued for the sender pool.
func (d *Dispatcher) Publish(article *entity.Article) {
	if d.broadcaster != nil {
		d.broadcaster.Broadcast(article)
	}
	if d.webhooks == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subs, err := d.subscriptions.ListActive(ctx)
	if err != nil {
		slog.Error("subscription load failed, webhook fan-out skipped",
			slog.String("article_id", article.ID),
			slog.String("error", err.Error()))
		return
	}

	matched := 0
	for _, sub := range subs {
		if sub.Channel != entity.ChannelWebhook || sub.Frequency != entity.FreqRealtime {
			continue
		}
		if !sub.Filter.Matches(article) {
			continue
		}
		d.webhooks.Enqueue(sub, article)
		matched++
	}
	if matched > 0 {
		slog.Debug("webhook deliveries enqueued",
			slog.String("article_id", article.ID),
			slog.Int("subscriptions", matched))
	}
}
