// Package dedup decides whether an incoming article is new or a
// duplicate of something already stored. Three checks run in order,
// cheapest first: canonical URL lookup, SimHash comparison against every
// stored title, and MinHash LSH over article bodies.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"logistics-news/internal/fingerprint"
	"logistics-news/internal/observability/metrics"
	"logistics-news/internal/repository"
)

// Level identifies which check decided the outcome.
type Level string

const (
	LevelURL     Level = "url"
	LevelSimHash Level = "simhash"
	LevelMinHash Level = "minhash"
)

// Outcome is the result of running the cascade for one article.
// A duplicate outcome is a normal result, not an error.
type Outcome struct {
	Duplicate bool
	Level     Level
	// MatchedID is the stored article the candidate duplicated, where
	// the deciding level knows it (simhash and minhash levels).
	MatchedID string
	// Similarity is the Jaccard estimate for minhash decisions.
	Similarity float64
}

// titleEntry is one stored article's title fingerprint.
type titleEntry struct {
	articleID string
	simHash   uint64
}

// Deduper runs the cascade. URL checks go to the database; the SimHash
// list and the LSH index live in memory and are rebuilt from all
// persisted fingerprints on startup, so a duplicate is caught no matter
// how old its original is. The linear SimHash scan holds up into the
// millions of titles; each entry is sixteen bytes.
type Deduper struct {
	articles repository.ArticleRepository
	lsh      *fingerprint.LSHIndex

	simHashThreshold int
	jaccardThreshold float64

	mu     sync.Mutex
	titles []titleEntry
}

// Config tunes the near-duplicate checks. Zero values take defaults.
type Config struct {
	SimHashThreshold int
	JaccardThreshold float64
}

// New creates a Deduper with empty in-memory indexes.
func New(articles repository.ArticleRepository, cfg Config) *Deduper {
	if cfg.SimHashThreshold <= 0 {
		cfg.SimHashThreshold = fingerprint.DefaultSimHashThreshold
	}
	if cfg.JaccardThreshold <= 0 {
		cfg.JaccardThreshold = fingerprint.DefaultJaccardThreshold
	}
	return &Deduper{
		articles:         articles,
		lsh:              fingerprint.NewLSHIndex(),
		simHashThreshold: cfg.SimHashThreshold,
		jaccardThreshold: cfg.JaccardThreshold,
	}
}

// Warmup rebuilds the in-memory indexes from all persisted fingerprints.
// Called once on startup before the scheduler begins fetching.
func (d *Deduper) Warmup(ctx context.Context) error {
	fps, err := d.articles.Fingerprints(ctx)
	if err != nil {
		return fmt.Errorf("load fingerprints: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fp := range fps {
		if fp.TitleSimHash != 0 {
			d.titles = append(d.titles, titleEntry{
				articleID: fp.ArticleID,
				simHash:   fp.TitleSimHash,
			})
		}
		if len(fp.ContentMinHash) > 0 {
			d.lsh.Insert(fp.ArticleID, fp.ContentMinHash)
		}
	}

	slog.Info("dedup indexes warmed",
		slog.Int("title_fingerprints", len(d.titles)),
		slog.Int("lsh_signatures", d.lsh.Len()))
	return nil
}

// Check runs the cascade for one candidate article. The candidate's URL
// must already be canonicalized; titleSimHash and contentMinHash come
// from the fingerprint package.
func (d *Deduper) Check(ctx context.Context, canonicalURL string, titleSimHash uint64, contentMinHash []uint64) (Outcome, error) {
	exists, err := d.articles.ExistsByURL(ctx, canonicalURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("url check: %w", err)
	}
	if exists {
		metrics.RecordDedupHit(string(LevelURL))
		return Outcome{Duplicate: true, Level: LevelURL}, nil
	}

	if id, ok := d.scanTitles(titleSimHash); ok {
		metrics.RecordDedupHit(string(LevelSimHash))
		return Outcome{Duplicate: true, Level: LevelSimHash, MatchedID: id}, nil
	}

	if matches := d.lsh.Query(contentMinHash, d.jaccardThreshold); len(matches) > 0 {
		metrics.RecordDedupHit(string(LevelMinHash))
		return Outcome{
			Duplicate:  true,
			Level:      LevelMinHash,
			MatchedID:  matches[0].ArticleID,
			Similarity: matches[0].Jaccard,
		}, nil
	}

	return Outcome{}, nil
}

// Remember adds an accepted article's fingerprints to the in-memory
// indexes so later candidates are checked against it.
func (d *Deduper) Remember(articleID string, titleSimHash uint64, contentMinHash []uint64) {
	if titleSimHash != 0 {
		d.mu.Lock()
		d.titles = append(d.titles, titleEntry{
			articleID: articleID,
			simHash:   titleSimHash,
		})
		d.mu.Unlock()
	}
	if len(contentMinHash) > 0 {
		d.lsh.Insert(articleID, contentMinHash)
	}
}

// TitleCount returns the number of title fingerprints held in memory.
func (d *Deduper) TitleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.titles)
}

func (d *Deduper) scanTitles(simHash uint64) (string, bool) {
	if simHash == 0 {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.titles) - 1; i >= 0; i-- {
		if fingerprint.Similar(simHash, d.titles[i].simHash, d.simHashThreshold) {
			return d.titles[i].articleID, true
		}
	}
	return "", false
}
