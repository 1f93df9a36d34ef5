package push

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-news/internal/domain/entity"
)

func hubServer(h *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := entity.Filter{}
		if mode := r.URL.Query().Get("transport_mode"); mode != "" {
			filter.TransportModes = []entity.TransportMode{entity.TransportMode(mode)}
		}
		h.Serve(w, r, filter)
	}))
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/articles" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func completedArticle(modes ...entity.TransportMode) *entity.Article {
	return &entity.Article{
		ID:               "a1",
		SourceID:         "src",
		URL:              "https://example.com/a1",
		Title:            "Rates up",
		ProcessingStatus: entity.StatusCompleted,
		Enrichment: entity.Enrichment{
			TransportModes: modes,
			Urgency:        entity.UrgencyHigh,
			Sentiment:      entity.SentimentNegative,
		},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_BroadcastRespectsFilter(t *testing.T) {
	h := NewHub(10)
	srv := hubServer(h)
	defer srv.Close()

	ocean := dial(t, srv, "?transport_mode=ocean")
	defer ocean.Close()
	air := dial(t, srv, "?transport_mode=air")
	defer air.Close()

	waitFor(t, func() bool { return h.Len() == 2 })
	h.Broadcast(completedArticle(entity.ModeOcean))

	_ = ocean.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ocean.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type string         `json:"type"`
		Data entity.Article `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "new_article", env.Type)
	assert.Equal(t, "a1", env.Data.ID)

	// The air-filtered connection gets nothing.
	_ = air.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = air.ReadMessage()
	assert.Error(t, err)
}

func TestHub_CapacityRefusal(t *testing.T) {
	h := NewHub(1)
	srv := hubServer(h)
	defer srv.Close()

	first := dial(t, srv, "")
	defer first.Close()
	waitFor(t, func() bool { return h.Len() == 1 })

	second := dial(t, srv, "")
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
	assert.Equal(t, "capacity", closeErr.Text)

	// The first connection still works.
	h.Broadcast(completedArticle())
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = first.ReadMessage()
	assert.NoError(t, err)
}

func TestHub_Close_SendsNormalCloseFrame(t *testing.T) {
	h := NewHub(10)
	srv := hubServer(h)
	defer srv.Close()

	ws := dial(t, srv, "")
	defer ws.Close()
	waitFor(t, func() bool { return h.Len() == 1 })

	h.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, 0, h.Len())
}

func TestConn_EnqueueDropsOldest(t *testing.T) {
	c := &conn{send: make(chan []byte, 2), done: make(chan struct{})}
	c.enqueue([]byte("one"))
	c.enqueue([]byte("two"))
	c.enqueue([]byte("three"))

	assert.Equal(t, []byte("two"), <-c.send)
	assert.Equal(t, []byte("three"), <-c.send)
}
