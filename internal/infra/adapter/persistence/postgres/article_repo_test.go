package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics-news/internal/domain/entity"
	pg "logistics-news/internal/infra/adapter/persistence/postgres"
	"logistics-news/internal/repository"
)

var articleCols = []string{
	"id", "source_id", "url", "title", "body_text", "body_markdown", "language",
	"published_at", "fetched_at", "title_simhash", "content_minhash", "enrichment", "embedding",
	"processing_status", "llm_processed", "created_at", "updated_at",
}

func testArticle() *entity.Article {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &entity.Article{
		ID:           "6f1a2b3c-0000-0000-0000-000000000001",
		SourceID:     "loadstar",
		URL:          "https://theloadstar.com/spot-rates-jump",
		Title:        "Spot rates jump 12%",
		BodyText:     "Transpacific spot rates jumped 12% this week.",
		Language:     "en",
		PublishedAt:  now,
		FetchedAt:    now,
		TitleSimHash: 0xdeadbeefcafe,
		ContentMinHash: func() []uint64 {
			sig := make([]uint64, 128)
			for i := range sig {
				sig[i] = uint64(i) * 7
			}
			return sig
		}(),
		ProcessingStatus: entity.StatusPending,
	}
}

func TestArticleRepo_Insert_New(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	inserted, err := repo.Insert(context.Background(), testArticle())
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleRepo_Insert_DuplicateURL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// ON CONFLICT DO NOTHING reports zero rows affected for a duplicate.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewArticleRepo(db)
	inserted, err := repo.Insert(context.Background(), testArticle())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestArticleRepo_Insert_Invalid(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := pg.NewArticleRepo(db)
	_, err = repo.Insert(context.Background(), &entity.Article{URL: "https://x.com"})
	require.Error(t, err)
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestArticleRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	want := testArticle()
	cols := append(append([]string{}, articleCols...), "source_name")
	rows := sqlmock.NewRows(cols).AddRow(
		want.ID, want.SourceID, want.URL, want.Title, want.BodyText, want.BodyMarkdown,
		want.Language, want.PublishedAt, want.FetchedAt, int64(want.TitleSimHash),
		nil, []byte(`{"sentiment":"negative","urgency":"high"}`), nil,
		string(want.ProcessingStatus), false, want.FetchedAt, want.FetchedAt,
		"The Loadstar",
	)
	mock.ExpectQuery("FROM articles a").WithArgs(want.ID).WillReturnRows(rows)

	repo := pg.NewArticleRepo(db)
	got, err := repo.Get(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, "The Loadstar", got.SourceName)
	assert.Equal(t, entity.SentimentNegative, got.Enrichment.Sentiment)
	assert.Equal(t, entity.UrgencyHigh, got.Enrichment.Urgency)
	assert.Equal(t, want.TitleSimHash, got.TitleSimHash)
}

func TestArticleRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM articles a").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(articleCols))

	repo := pg.NewArticleRepo(db)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestArticleRepo_ClaimForProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles")).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewArticleRepo(db)

	claimed, err := repo.ClaimForProcessing(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim loses the race: no rows transition.
	claimed, err = repo.ClaimForProcessing(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestArticleRepo_Fingerprints_RoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// 128 little-endian uint64 values, matching the Insert encoding.
	sig := make([]byte, 128*8)
	sig[0] = 0x2a

	mock.ExpectQuery("FROM articles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title_simhash", "content_minhash"}).
			AddRow("a1", int64(-1), sig))

	repo := pg.NewArticleRepo(db)
	fps, err := repo.Fingerprints(context.Background())
	require.NoError(t, err)
	require.Len(t, fps, 1)
	assert.Equal(t, uint64(0xffffffffffffffff), fps[0].TitleSimHash)
	require.Len(t, fps[0].ContentMinHash, 128)
	assert.Equal(t, uint64(0x2a), fps[0].ContentMinHash[0])
}

func TestArticleRepo_Count_WithFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sourceID := "loadstar"
	urgency := entity.UrgencyHigh
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles")).
		WithArgs(sourceID, string(urgency)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	repo := pg.NewArticleRepo(db)
	count, err := repo.Count(context.Background(), repository.ArticleListFilters{
		SourceID: &sourceID,
		Urgency:  &urgency,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

// The q filter goes through the full-text index expression, not ILIKE,
// and passes the raw phrase so plainto_tsquery handles tokenization.
func TestArticleRepo_Count_SearchUsesFullText(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	search := "port congestion"
	mock.ExpectQuery(regexp.QuoteMeta("@@ plainto_tsquery('english', $1)")).
		WithArgs(search).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	repo := pg.NewArticleRepo(db)
	count, err := repo.Count(context.Background(), repository.ArticleListFilters{
		Search: &search,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
