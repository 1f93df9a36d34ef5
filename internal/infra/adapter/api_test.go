package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"logistics-news/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiSource(url string, cfg *entity.APIConfig) *entity.Source {
	return &entity.Source{
		SourceID:             "cargo-api",
		Name:                 "Cargo API",
		Kind:                 entity.KindAPI,
		URL:                  url,
		FetchIntervalMinutes: 30,
		Enabled:              true,
		APIConfig:            cfg,
	}
}

func TestAPIAdapter_Fetch_MappedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-API-Key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"articles": []any{
					map[string]any{
						"attributes": map[string]any{
							"headline":  "Air cargo rates stabilize",
							"permalink": "https://cargo.example.com/a/1",
							"body":      "Capacity recovered on Asia-Europe lanes.",
							"published": "2026-08-18T06:00:00Z",
							"byline":    "K. Ono",
						},
					},
					map[string]any{
						"attributes": map[string]any{
							"headline": "No permalink, must be skipped",
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	cfg := &entity.APIConfig{
		AuthType:  entity.AuthAPIKeyHeader,
		AuthKey:   "X-API-Key",
		AuthValue: "secret-token",
		ItemsPath: "data.articles",
		Mapping: entity.APIFieldMapping{
			Title:       "attributes.headline",
			URL:         "attributes.permalink",
			BodyText:    "attributes.body",
			PublishedAt: "attributes.published",
			Author:      "attributes.byline",
		},
	}

	a := NewAPIAdapter(srv.Client(), "TestBot/1.0")
	articles, err := a.Fetch(context.Background(), apiSource(srv.URL, cfg))
	require.NoError(t, err)
	require.Len(t, articles, 1)

	got := articles[0]
	assert.Equal(t, "Air cargo rates stabilize", got.Title)
	assert.Equal(t, "https://cargo.example.com/a/1", got.URL)
	assert.Equal(t, "Capacity recovered on Asia-Europe lanes.", got.RawText)
	assert.Equal(t, "K. Ono", got.Author)
	assert.Equal(t, time.Date(2026, 8, 18, 6, 0, 0, 0, time.UTC), got.PublishedAt.UTC())
}

func TestAPIAdapter_Fetch_PageNumberPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		items := []any{}
		if page == 1 {
			items = []any{
				map[string]any{"url": "https://cargo.example.com/a/1", "title": "one"},
				map[string]any{"url": "https://cargo.example.com/a/2", "title": "two"},
			}
		} else if page == 2 {
			items = []any{
				map[string]any{"url": "https://cargo.example.com/a/3", "title": "three"},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer srv.Close()

	cfg := &entity.APIConfig{
		AuthType:        entity.AuthNone,
		PaginationType:  entity.PageNumber,
		PaginationParam: "page",
		PageSizeParam:   "per_page",
		PageSize:        2,
		MaxPages:        5,
		ItemsPath:       "items",
		Mapping:         entity.APIFieldMapping{Title: "title", URL: "url"},
	}

	a := NewAPIAdapter(srv.Client(), "TestBot/1.0")
	articles, err := a.Fetch(context.Background(), apiSource(srv.URL, cfg))
	require.NoError(t, err)
	// Short final page stops pagination.
	assert.Len(t, articles, 3)
}

func TestAPIAdapter_Fetch_CursorPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		resp := map[string]any{}
		switch cursor {
		case "":
			resp["items"] = []any{map[string]any{"url": "https://x.example.com/1"}}
			resp["next_cursor"] = "abc"
		case "abc":
			resp["items"] = []any{map[string]any{"url": "https://x.example.com/2"}}
			resp["next_cursor"] = ""
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := &entity.APIConfig{
		PaginationType:  entity.PageCursor,
		PaginationParam: "next_cursor",
		PageSize:        1,
		MaxPages:        5,
		ItemsPath:       "items",
		Mapping:         entity.APIFieldMapping{URL: "url"},
	}

	a := NewAPIAdapter(srv.Client(), "TestBot/1.0")
	articles, err := a.Fetch(context.Background(), apiSource(srv.URL, cfg))
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestAPIAdapter_Fetch_QueryAuth(t *testing.T) {
	t.Setenv("CARGO_API_KEY", "from-env")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from-env", r.URL.Query().Get("apikey"))
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	defer srv.Close()

	cfg := &entity.APIConfig{
		AuthType:  entity.AuthAPIKeyQuery,
		AuthKey:   "apikey",
		AuthValue: "$CARGO_API_KEY",
		ItemsPath: "items",
		Mapping:   entity.APIFieldMapping{URL: "url"},
	}

	a := NewAPIAdapter(srv.Client(), "TestBot/1.0")
	articles, err := a.Fetch(context.Background(), apiSource(srv.URL, cfg))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestAPIAdapter_Fetch_MissingAuthEnv(t *testing.T) {
	cfg := &entity.APIConfig{
		AuthType:  entity.AuthBearer,
		AuthValue: "$DEFINITELY_NOT_SET_ANYWHERE",
	}
	a := NewAPIAdapter(http.DefaultClient, "TestBot/1.0")
	_, err := a.Fetch(context.Background(), apiSource("http://unused.example.com", cfg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFINITELY_NOT_SET_ANYWHERE")
}

func TestAPIAdapter_Fetch_FirstPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := &entity.APIConfig{ItemsPath: "items", Mapping: entity.APIFieldMapping{URL: "url"}}
	a := NewAPIAdapter(srv.Client(), "TestBot/1.0")
	a.retryConfig.InitialDelay = time.Millisecond

	articles, err := a.Fetch(context.Background(), apiSource(srv.URL, cfg))
	require.Error(t, err)
	assert.Nil(t, articles)
}
