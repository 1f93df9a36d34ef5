package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"logistics-news/internal/resilience/retry"
)

const cseEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries the Custom Search JSON API. Optional: only active
// when credentials are configured.
type GoogleCSE struct {
	client      *http.Client
	apiKey      string
	engineID    string
	retryConfig retry.Config
	endpoint    string
}

// NewGoogleCSEFromEnv returns nil when GOOGLE_CSE_API_KEY or
// GOOGLE_CSE_ENGINE_ID is unset.
func NewGoogleCSEFromEnv(client *http.Client) *GoogleCSE {
	apiKey := os.Getenv("GOOGLE_CSE_API_KEY")
	engineID := os.Getenv("GOOGLE_CSE_ENGINE_ID")
	if apiKey == "" || engineID == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &GoogleCSE{
		client:      client,
		apiKey:      apiKey,
		engineID:    engineID,
		retryConfig: retry.DiscoveryConfig(),
		endpoint:    cseEndpoint,
	}
}

func (g *GoogleCSE) Name() string { return "google_cse" }

// Search runs one query. The API caps page size at 10.
func (g *GoogleCSE) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit > 10 {
		limit = 10
	}

	q := url.Values{}
	q.Set("key", g.apiKey)
	q.Set("cx", g.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(limit))

	var results []string
	retryErr := retry.WithBackoff(ctx, g.retryConfig, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
		}

		var payload struct {
			Items []struct {
				Link string `json:"link"`
			} `json:"items"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return err
		}

		results = results[:0]
		for _, item := range payload.Items {
			if item.Link != "" {
				results = append(results, item.Link)
			}
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return results, nil
}
