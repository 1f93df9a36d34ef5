package metrics

import "time"

// RecordFetch records one completed source fetch cycle.
func RecordFetch(sourceID, status string, duration time.Duration) {
	FetchDuration.WithLabelValues(sourceID).Observe(duration.Seconds())
	FetchOutcomes.WithLabelValues(sourceID, status).Inc()
}

// RecordIngested records newly accepted articles for a source.
func RecordIngested(sourceID string, count int) {
	if count > 0 {
		ArticlesIngested.WithLabelValues(sourceID).Add(float64(count))
	}
}

// RecordDedupHit records a duplicate caught at the given cascade level
// ("url", "simhash" or "minhash").
func RecordDedupHit(level string) {
	DedupHits.WithLabelValues(level).Inc()
}

// RecordEnrichment records the outcome and duration of one enrichment.
func RecordEnrichment(success bool, duration time.Duration) {
	outcome := "completed"
	if !success {
		outcome = "failed"
	}
	EnrichmentsTotal.WithLabelValues(outcome).Inc()
	EnrichmentDuration.Observe(duration.Seconds())
}

// RecordWebhookAttempt records one webhook delivery attempt.
func RecordWebhookAttempt(success bool) {
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	WebhookAttempts.WithLabelValues(outcome).Inc()
}

// RecordDiscoveryRun records one discovery phase execution.
func RecordDiscoveryRun(phase string) {
	DiscoveryRuns.WithLabelValues(phase).Inc()
}

// RecordCandidateStatus records a candidate entering the given status.
func RecordCandidateStatus(status string) {
	CandidatesTotal.WithLabelValues(status).Inc()
}
