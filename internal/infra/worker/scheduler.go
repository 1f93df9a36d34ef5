// Package worker schedules the recurring work of the service: per-source
// fetch cycles, the enrichment backstop sweep, and the discovery loop.
package worker

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/repository"
	"logistics-news/internal/usecase/collect"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// Scheduler owns one goroutine per enabled source plus cron entries for
// the singleton tasks. Sources are resynced periodically so promotions
// from discovery start fetching without a restart.
type Scheduler struct {
	cfg       Config
	sources   repository.SourceRepository
	articles  repository.ArticleRepository
	collector *collect.Collector

	// enqueue requeues a pending article into the enrichment pipeline.
	enqueue func(articleID string)
	// scan and validate are the discovery singleton tasks. Either may be
	// nil when discovery is disabled.
	scan     func(ctx context.Context)
	validate func(ctx context.Context)

	cron     *cron.Cron
	fetchSem *semaphore.Weighted

	mu    sync.Mutex
	tasks map[string]*sourceTask

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	scanRunning       atomic.Bool
	validateRunning   atomic.Bool
	discoveryStopped  atomic.Bool
	lastScanStarted   atomic.Int64
	lastValidateStart atomic.Int64
}

// sourceTask is the per-source ticker loop.
type sourceTask struct {
	source   *entity.Source
	inFlight atomic.Bool
	stop     chan struct{}
}

// NewScheduler creates a Scheduler. Discovery callbacks may be nil.
func NewScheduler(
	cfg Config,
	sources repository.SourceRepository,
	articles repository.ArticleRepository,
	collector *collect.Collector,
	enqueue func(articleID string),
	scan func(ctx context.Context),
	validate func(ctx context.Context),
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:       cfg,
		sources:   sources,
		articles:  articles,
		collector: collector,
		enqueue:   enqueue,
		scan:      scan,
		validate:  validate,
		cron:      cron.New(),
		fetchSem:  semaphore.NewWeighted(int64(cfg.MaxConcurrentFetches)),
		tasks:     make(map[string]*sourceTask),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start syncs source tasks and registers the singleton cron jobs.
func (s *Scheduler) Start() error {
	if err := s.syncSources(s.ctx); err != nil {
		return err
	}

	jobs := []struct {
		every time.Duration
		run   func()
	}{
		{s.cfg.SourceResyncInterval, func() {
			if err := s.syncSources(s.ctx); err != nil {
				slog.Error("source resync failed", slog.String("error", err.Error()))
			}
		}},
		{s.cfg.BackstopInterval, s.runBackstop},
	}
	if s.scan != nil {
		jobs = append(jobs, struct {
			every time.Duration
			run   func()
		}{s.cfg.DiscoveryScanInterval, s.runScan})
	}
	if s.validate != nil {
		jobs = append(jobs, struct {
			every time.Duration
			run   func()
		}{s.cfg.DiscoveryValidateInterval, s.runValidate})
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc("@every "+j.every.String(), j.run); err != nil {
			return err
		}
	}

	s.cron.Start()
	slog.Info("scheduler started",
		slog.Int("sources", len(s.tasks)),
		slog.Int("max_concurrent_fetches", s.cfg.MaxConcurrentFetches))
	return nil
}

// Stop halts scheduling and waits up to the drain timeout for in-flight
// fetch cycles to finish.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.mu.Lock()
	for _, t := range s.tasks {
		close(t.stop)
	}
	s.tasks = make(map[string]*sourceTask)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("scheduler drained")
	case <-time.After(s.cfg.ShutdownDrainTimeout):
		slog.Warn("scheduler drain timeout, abandoning in-flight fetches")
	}
	s.cancel()
}

// syncSources reconciles running tasks against enabled sources: new or
// reconfigured sources get a fresh task, removed or disabled ones stop.
func (s *Scheduler) syncSources(ctx context.Context) error {
	enabled, err := s.sources.ListEnabled(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(enabled))
	for _, src := range enabled {
		seen[src.SourceID] = true
		existing, ok := s.tasks[src.SourceID]
		if ok && existing.source.FetchIntervalMinutes == src.FetchIntervalMinutes && existing.source.URL == src.URL {
			continue
		}
		if ok {
			close(existing.stop)
		}
		task := &sourceTask{source: src, stop: make(chan struct{})}
		s.tasks[src.SourceID] = task
		s.wg.Add(1)
		go s.runSourceLoop(task)
		if !ok {
			slog.Info("source scheduled",
				slog.String("source_id", src.SourceID),
				slog.Int("interval_minutes", src.FetchIntervalMinutes))
		}
	}

	for id, t := range s.tasks {
		if !seen[id] {
			close(t.stop)
			delete(s.tasks, id)
			slog.Info("source unscheduled", slog.String("source_id", id))
		}
	}
	return nil
}

// runSourceLoop ticks at the source's interval with jitter. The first
// tick fires after one jittered interval, not immediately, so a restart
// does not stampede every source at once.
func (s *Scheduler) runSourceLoop(task *sourceTask) {
	defer s.wg.Done()
	interval := time.Duration(task.source.FetchIntervalMinutes) * time.Minute

	timer := time.NewTimer(s.jittered(interval))
	defer timer.Stop()

	for {
		select {
		case <-task.stop:
			return
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.runFetch(task)
			timer.Reset(s.jittered(interval))
		}
	}
}

// runFetch executes one fetch cycle under the per-source guard and the
// global concurrency limit.
func (s *Scheduler) runFetch(task *sourceTask) {
	if !task.inFlight.CompareAndSwap(false, true) {
		slog.Warn("fetch tick skipped, previous cycle still running",
			slog.String("source_id", task.source.SourceID))
		return
	}
	defer task.inFlight.Store(false)

	if err := s.fetchSem.Acquire(s.ctx, 1); err != nil {
		return
	}
	defer s.fetchSem.Release(1)

	res, err := s.collector.CollectSource(s.ctx, task.source)
	if err != nil {
		slog.Error("fetch cycle failed",
			slog.String("source_id", task.source.SourceID),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("fetch cycle completed",
		slog.String("source_id", task.source.SourceID),
		slog.Int("found", res.Found),
		slog.Int("new", res.New),
		slog.Int("dedup", res.Dedup))
}

// runBackstop requeues pending articles whose enrichment signal was
// lost, e.g. across a restart.
func (s *Scheduler) runBackstop() {
	if s.enqueue == nil {
		return
	}
	pending, err := s.articles.ListPending(s.ctx, s.cfg.BackstopMinAge, 200)
	if err != nil {
		slog.Error("backstop sweep failed", slog.String("error", err.Error()))
		return
	}
	if len(pending) == 0 {
		return
	}
	slog.Info("backstop requeueing stuck articles", slog.Int("count", len(pending)))
	for _, a := range pending {
		s.enqueue(a.ID)
	}
}

func (s *Scheduler) runScan() {
	if s.discoveryStopped.Load() {
		return
	}
	if !s.scanRunning.CompareAndSwap(false, true) {
		slog.Warn("discovery scan skipped, previous run still active")
		return
	}
	defer s.scanRunning.Store(false)
	s.lastScanStarted.Store(time.Now().Unix())
	s.scan(s.ctx)
}

func (s *Scheduler) runValidate() {
	if s.discoveryStopped.Load() {
		return
	}
	if !s.validateRunning.CompareAndSwap(false, true) {
		slog.Warn("discovery validate skipped, previous run still active")
		return
	}
	defer s.validateRunning.Store(false)
	s.lastValidateStart.Store(time.Now().Unix())
	s.validate(s.ctx)
}

// DiscoveryStatus is the API-facing snapshot of the discovery loop.
type DiscoveryStatus struct {
	Enabled         bool      `json:"enabled"`
	ScanRunning     bool      `json:"scan_running"`
	ValidateRunning bool      `json:"validate_running"`
	LastScanAt      time.Time `json:"last_scan_at,omitzero"`
	LastValidateAt  time.Time `json:"last_validate_at,omitzero"`
}

// SetDiscoveryEnabled pauses or resumes the discovery cadences. A run
// already in flight is not interrupted.
func (s *Scheduler) SetDiscoveryEnabled(enabled bool) {
	s.discoveryStopped.Store(!enabled)
	slog.Info("discovery loop toggled", slog.Bool("enabled", enabled))
}

// TriggerScan starts a scan immediately. Returns false when discovery
// is unavailable or a scan is already running.
func (s *Scheduler) TriggerScan() bool {
	if s.scan == nil || s.discoveryStopped.Load() || s.scanRunning.Load() {
		return false
	}
	go s.runScan()
	return true
}

// TriggerValidate starts a validation batch immediately. Returns false
// when discovery is unavailable or a batch is already running.
func (s *Scheduler) TriggerValidate() bool {
	if s.validate == nil || s.discoveryStopped.Load() || s.validateRunning.Load() {
		return false
	}
	go s.runValidate()
	return true
}

// Discovery reports the current state of the discovery loop.
func (s *Scheduler) Discovery() DiscoveryStatus {
	st := DiscoveryStatus{
		Enabled:         s.scan != nil && !s.discoveryStopped.Load(),
		ScanRunning:     s.scanRunning.Load(),
		ValidateRunning: s.validateRunning.Load(),
	}
	if ts := s.lastScanStarted.Load(); ts > 0 {
		st.LastScanAt = time.Unix(ts, 0).UTC()
	}
	if ts := s.lastValidateStart.Load(); ts > 0 {
		st.LastValidateAt = time.Unix(ts, 0).UTC()
	}
	return st
}

// jittered spreads an interval by ±JitterFraction.
func (s *Scheduler) jittered(interval time.Duration) time.Duration {
	if s.cfg.JitterFraction <= 0 {
		return interval
	}
	spread := float64(interval) * s.cfg.JitterFraction
	offset := (rand.Float64()*2 - 1) * spread
	return interval + time.Duration(offset)
}
