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
)

var subCols = []string{
	"id", "name", "filter", "channel", "webhook_config", "frequency",
	"enabled", "created_at", "updated_at",
}

func TestSubscriptionRepo_Create_WebhookWithoutSecret(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := pg.NewSubscriptionRepo(db)
	err = repo.Create(context.Background(), &entity.Subscription{
		ID: "s1", Name: "ops", Channel: entity.ChannelWebhook,
		WebhookConfig: &entity.WebhookConfig{URL: "https://hooks.example/x"},
	})
	require.Error(t, err)
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSubscriptionRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subscriptions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewSubscriptionRepo(db)
	err = repo.Create(context.Background(), &entity.Subscription{
		ID: "s1", Name: "breaking ocean", Channel: entity.ChannelPush,
		Filter:  entity.Filter{UrgencyMin: entity.UrgencyHigh},
		Enabled: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE enabled = TRUE")).
		WillReturnRows(sqlmock.NewRows(subCols).
			AddRow("s1", "push sub", []byte(`{"urgency_min":"high"}`), "push", nil, "realtime", true, now, now).
			AddRow("s2", "hook sub", []byte(`{}`), "webhook",
				[]byte(`{"url":"https://hooks.example/x","secret":"shh"}`), "realtime", true, now, now))

	repo := pg.NewSubscriptionRepo(db)
	subs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, entity.UrgencyHigh, subs[0].Filter.UrgencyMin)
	require.NotNil(t, subs[1].WebhookConfig)
	assert.Equal(t, "shh", subs[1].WebhookConfig.Secret)
}

func TestSubscriptionRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subscriptions")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewSubscriptionRepo(db)
	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), entity.ErrNotFound)
}
