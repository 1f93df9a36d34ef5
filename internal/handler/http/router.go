package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyticshandler "logistics-news/internal/handler/http/analytics"
	apikeyhandler "logistics-news/internal/handler/http/apikey"
	articlehandler "logistics-news/internal/handler/http/article"
	"logistics-news/internal/handler/http/auth"
	discoveryhandler "logistics-news/internal/handler/http/discovery"
	"logistics-news/internal/handler/http/middleware"
	"logistics-news/internal/handler/http/requestid"
	"logistics-news/internal/handler/http/respond"
	sourcehandler "logistics-news/internal/handler/http/source"
	subscriptionhandler "logistics-news/internal/handler/http/subscription"
	"logistics-news/internal/infra/llm"
	"logistics-news/internal/infra/push"
	"logistics-news/internal/infra/worker"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/observability/tracing"
	"logistics-news/internal/repository"
	analyticsUC "logistics-news/internal/usecase/analytics"
	"logistics-news/internal/usecase/discover"
)

// Deps are the wired components the router serves. Optional fields may
// be nil; their routes degrade or are omitted.
type Deps struct {
	Articles      repository.ArticleRepository
	Sources       repository.SourceRepository
	FetchLogs     repository.FetchLogRepository
	Subscriptions repository.SubscriptionRepository
	Candidates    repository.CandidateRepository
	APIKeys       repository.APIKeyRepository

	Embedder  llm.Embedder
	Enqueue   func(articleID string)
	Hub       *push.Hub
	Scheduler *worker.Scheduler
	Discovery *discover.Engine
	Analytics *analyticsUC.Service

	RateLimitRPM int
}

// NewRouter builds the full API surface with its middleware chain:
// request ID, tracing, metrics, rate limit, then authentication.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authn := auth.New(d.APIKeys)

	articlehandler.Register(mux, d.Articles, d.Embedder, d.Enqueue)
	sourcehandler.Register(mux, d.Sources, d.FetchLogs)
	subscriptionhandler.Register(mux, d.Subscriptions)
	apikeyhandler.Register(mux, d.APIKeys, authn.RequireAdmin, authn)

	if d.Discovery != nil && d.Scheduler != nil {
		discoveryhandler.Register(mux, &discoveryhandler.Handler{
			Engine:     d.Discovery,
			Candidates: d.Candidates,
			Scheduler:  d.Scheduler,
		})
	}
	if d.Analytics != nil {
		analyticshandler.Register(mux, &analyticshandler.Handler{Svc: d.Analytics})
	}

	mux.Handle("GET /health", HealthHandler{Sources: d.Sources})
	mux.Handle("GET /health/sources", SourceHealthHandler{Sources: d.Sources, Logs: d.FetchLogs})
	mux.Handle("GET /metrics", promhttp.Handler())
	if d.Hub != nil {
		mux.Handle("GET /ws/articles", WSHandler{Hub: d.Hub})
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.NotFound(w, "route")
	})

	limiter := middleware.NewRateLimiter(d.RateLimitRPM, time.Minute)

	chained := middleware.Chain(mux,
		requestid.Middleware,
		tracing.Middleware,
		metricsMiddleware(mux),
		limiter.Middleware,
		authn.Middleware,
	)
	// The upgrade needs the raw ResponseWriter (http.Hijacker), so the
	// WebSocket path bypasses the wrapping middleware. Authentication
	// still applies: bad credentials are rejected with a plain 401
	// before the upgrade, so the client sees a failed handshake rather
	// than a close frame.
	wsChain := middleware.Chain(mux, authn.Middleware)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws") {
			wsChain.ServeHTTP(w, r)
			return
		}
		chained.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency labeled by the
// matched route pattern, keeping label cardinality bounded.
func metricsMiddleware(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, pattern := mux.Handler(r)
			if pattern == "" || pattern == "/" {
				pattern = "unmatched"
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			metrics.RecordHTTPRequest(r.Method, pattern, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
