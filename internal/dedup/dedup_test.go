package dedup

import (
	"context"
	"testing"

	"logistics-news/internal/fingerprint"
	"logistics-news/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubArticleRepo implements the two repository methods the cascade uses.
type stubArticleRepo struct {
	repository.ArticleRepository

	urls         map[string]bool
	fingerprints []repository.Fingerprint
}

func (s *stubArticleRepo) ExistsByURL(_ context.Context, url string) (bool, error) {
	return s.urls[url], nil
}

func (s *stubArticleRepo) Fingerprints(_ context.Context) ([]repository.Fingerprint, error) {
	return s.fingerprints, nil
}

func newTestDeduper(repo *stubArticleRepo) *Deduper {
	if repo.urls == nil {
		repo.urls = map[string]bool{}
	}
	return New(repo, Config{})
}

func TestDeduper_Check_NewArticle(t *testing.T) {
	d := newTestDeduper(&stubArticleRepo{})

	out, err := d.Check(context.Background(),
		"https://example.com/news/first",
		fingerprint.SimHash("Maersk raises transpacific rates"),
		fingerprint.MinHash("Carriers announced new rate increases effective next month across major trade lanes."))
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
}

func TestDeduper_Check_URLLevel(t *testing.T) {
	d := newTestDeduper(&stubArticleRepo{
		urls: map[string]bool{"https://example.com/news/first": true},
	})

	out, err := d.Check(context.Background(), "https://example.com/news/first", 0, nil)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, LevelURL, out.Level)
}

func TestDeduper_Check_SimHashLevel(t *testing.T) {
	d := newTestDeduper(&stubArticleRepo{})
	d.Remember("art-1", fingerprint.SimHash("Container rates surge on Asia Europe trade"), nil)

	out, err := d.Check(context.Background(),
		"https://other.example.com/rates",
		fingerprint.SimHash("Container rates soar on Asia Europe trade"),
		nil)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, LevelSimHash, out.Level)
	assert.Equal(t, "art-1", out.MatchedID)
}

func TestDeduper_Check_MinHashLevel(t *testing.T) {
	body := "Global schedule reliability improved for the third consecutive month according to the latest " +
		"carrier performance report, with on time arrivals reaching their highest level since the " +
		"pandemic era disruptions began reshaping container shipping networks worldwide."

	d := newTestDeduper(&stubArticleRepo{})
	d.Remember("art-9", 0, fingerprint.MinHash(body))

	// Same body, different headline wording, so SimHash does not fire.
	out, err := d.Check(context.Background(),
		"https://mirror.example.net/reliability",
		fingerprint.SimHash("Completely unrelated headline about warehouses"),
		fingerprint.MinHash(body))
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, LevelMinHash, out.Level)
	assert.Equal(t, "art-9", out.MatchedID)
	assert.GreaterOrEqual(t, out.Similarity, 0.85)
}

func TestDeduper_Check_DistinctBodiesPass(t *testing.T) {
	d := newTestDeduper(&stubArticleRepo{})
	d.Remember("art-1",
		fingerprint.SimHash("Air freight demand weakens in Europe"),
		fingerprint.MinHash("Air cargo volumes out of Frankfurt declined for the second straight quarter as manufacturers cut inventories."))

	out, err := d.Check(context.Background(),
		"https://example.com/ports",
		fingerprint.SimHash("Singapore port posts record throughput"),
		fingerprint.MinHash("The port of Singapore handled a record number of containers last month, driven by transshipment growth."))
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
}

func TestDeduper_Warmup(t *testing.T) {
	sig := fingerprint.MinHash("Some persisted article body long enough to shingle into a proper signature for testing.")
	repo := &stubArticleRepo{
		urls: map[string]bool{},
		fingerprints: []repository.Fingerprint{
			{
				ArticleID:      "persisted-1",
				TitleSimHash:   fingerprint.SimHash("Panama Canal transit slots expand"),
				ContentMinHash: sig,
			},
		},
	}
	d := newTestDeduper(repo)
	require.NoError(t, d.Warmup(context.Background()))
	assert.Equal(t, 1, d.TitleCount())
	assert.Equal(t, 1, d.lsh.Len())

	out, err := d.Check(context.Background(),
		"https://new.example.com/canal",
		fingerprint.SimHash("Panama Canal transit slots expand"),
		nil)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, "persisted-1", out.MatchedID)
}

// A restart must not forget old articles: a story republished days after
// the original still dedups at the simhash and minhash levels.
func TestDeduper_Warmup_CatchesOldDuplicates(t *testing.T) {
	body := "Union negotiators and terminal operators reached a tentative agreement late on Friday, " +
		"ending a work slowdown that had idled cranes at three of the largest container gateways " +
		"on the coast and left dozens of vessels waiting at anchor for berth space."

	repo := &stubArticleRepo{
		urls: map[string]bool{},
		fingerprints: []repository.Fingerprint{
			{
				ArticleID:      "last-week",
				TitleSimHash:   fingerprint.SimHash("Port labor deal ends coastwide slowdown"),
				ContentMinHash: fingerprint.MinHash(body),
			},
		},
	}
	d := newTestDeduper(repo)
	require.NoError(t, d.Warmup(context.Background()))

	out, err := d.Check(context.Background(),
		"https://syndicated.example.com/labor-deal",
		fingerprint.SimHash("Port labor deal ends coastal slowdown"),
		nil)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, LevelSimHash, out.Level)
	assert.Equal(t, "last-week", out.MatchedID)

	out, err = d.Check(context.Background(),
		"https://mirror.example.net/labor-deal",
		fingerprint.SimHash("Cranes moving again after tentative port agreement"),
		fingerprint.MinHash(body))
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, LevelMinHash, out.Level)
	assert.Equal(t, "last-week", out.MatchedID)
}

func TestDeduper_Config_Defaults(t *testing.T) {
	d := New(&stubArticleRepo{urls: map[string]bool{}}, Config{})
	assert.Equal(t, fingerprint.DefaultSimHashThreshold, d.simHashThreshold)
	assert.InDelta(t, fingerprint.DefaultJaccardThreshold, d.jaccardThreshold, 1e-9)
}
