// Package webhook delivers completed articles to subscription targets
// with HMAC-signed payloads, bounded retries, and per-attempt logging.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/repository"
)

const (
	// DefaultWorkers is the delivery pool size.
	DefaultWorkers = 4

	// requestTimeout bounds one delivery attempt.
	requestTimeout = 10 * time.Second

	// maxAttempts is the total number of attempts per delivery.
	maxAttempts = 3

	queueCapacity = 256
)

// defaultBackoff is the fixed wait before attempts 2 and 3.
var defaultBackoff = []time.Duration{2 * time.Second, 4 * time.Second}

// delivery is one (subscription, article) unit of work.
type delivery struct {
	sub     *entity.Subscription
	article *entity.Article
}

// Sender is the queue-driven webhook delivery pool.
type Sender struct {
	client *http.Client
	logs   repository.WebhookLogRepository

	workers int
	backoff []time.Duration
	queue   chan delivery
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSender creates a Sender.
func NewSender(logs repository.WebhookLogRepository, workers int) *Sender {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Sender{
		client:  &http.Client{Timeout: requestTimeout},
		logs:    logs,
		workers: workers,
		backoff: defaultBackoff,
		queue:   make(chan delivery, queueCapacity),
	}
}

// Start launches the delivery workers.
func (s *Sender) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker(ctx)
		}
		slog.Info("webhook sender started", slog.Int("workers", s.workers))
	})
}

// Stop closes the queue and waits up to drainTimeout for in-flight and
// queued deliveries to finish.
func (s *Sender) Stop(drainTimeout time.Duration) {
	s.stopOnce.Do(func() { close(s.queue) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("webhook queue drained")
	case <-time.After(drainTimeout):
		slog.Warn("webhook drain timeout, dropping remaining deliveries")
	}
}

// Enqueue schedules one delivery. Non-blocking; a full queue drops the
// delivery and logs it.
func (s *Sender) Enqueue(sub *entity.Subscription, article *entity.Article) {
	select {
	case s.queue <- delivery{sub: sub, article: article}:
	default:
		slog.Warn("webhook queue full, delivery dropped",
			slog.String("subscription_id", sub.ID),
			slog.String("article_id", article.ID))
	}
}

func (s *Sender) worker(ctx context.Context) {
	defer s.wg.Done()
	for d := range s.queue {
		if ctx.Err() != nil {
			return
		}
		s.deliver(ctx, d)
	}
}

// deliver runs the full attempt sequence for one delivery. Any 4xx
// response is terminal; other failures retry on the fixed schedule.
func (s *Sender) deliver(ctx context.Context, d delivery) {
	body, err := json.Marshal(d.article)
	if err != nil {
		slog.Error("webhook payload marshal failed",
			slog.String("article_id", d.article.ID),
			slog.String("error", err.Error()))
		return
	}
	signature := Sign(body, d.sub.WebhookConfig.Secret)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		status, attemptErr := s.post(ctx, d.sub.WebhookConfig.URL, body, signature)
		success := attemptErr == nil

		s.logAttempt(ctx, d, attempt, status, time.Since(start), attemptErr)
		metrics.RecordWebhookAttempt(success)

		if success {
			return
		}
		if status >= 400 && status < 500 {
			slog.Warn("webhook delivery rejected, not retrying",
				slog.String("subscription_id", d.sub.ID),
				slog.String("article_id", d.article.ID),
				slog.Int("http_status", status))
			return
		}
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.backoff[attempt-1]):
			}
		}
	}
	slog.Warn("webhook delivery failed after retries",
		slog.String("subscription_id", d.sub.ID),
		slog.String("article_id", d.article.ID))
}

// post performs one signed POST attempt. Returns the HTTP status (0 on
// transport error) and nil on any 2xx.
func (s *Sender) post(ctx context.Context, url string, body []byte, signature string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", "article.new")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (s *Sender) logAttempt(ctx context.Context, d delivery, attempt, status int, took time.Duration, attemptErr error) {
	row := &entity.WebhookDelivery{
		SubscriptionID: d.sub.ID,
		ArticleID:      d.article.ID,
		Attempt:        attempt,
		Status:         entity.DeliverySuccess,
		HTTPStatus:     status,
		DurationMS:     took.Milliseconds(),
	}
	if attemptErr != nil {
		row.Status = entity.DeliveryFailed
		row.Error = attemptErr.Error()
	}
	if err := s.logs.Insert(ctx, row); err != nil {
		slog.Error("webhook delivery log insert failed",
			slog.String("subscription_id", d.sub.ID),
			slog.String("error", err.Error()))
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret, exactly what
// receivers recompute to verify the X-Webhook-Signature header.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
