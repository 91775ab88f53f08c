//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"watchwise/internal/domain"
	"watchwise/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_cards.up.sql"),
			filepath.Join(migrationsPath, "002_create_user_state.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM recaps")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM session_state")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM bookmarks")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM cards")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestCardStore_UpsertAndFetchInPositionOrder() {
	store := NewCardStore(s.db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	cards := []domain.Card{
		{ID: 30, Title: "Fed", Summary: "s", Ticker: "SPY", Sentiment: domain.SentimentBullish, Category: "Macro", PublishedAt: now},
		{ID: 10, Title: "Tesla", Summary: "s", Detail: utils.Ptr("detail"), Ticker: "TSLA", Sentiment: domain.SentimentBearish, PublishedAt: now},
		{ID: 20, Title: "Apple", Summary: "s", ImageURL: utils.Ptr("https://example.com/a.jpg"), Ticker: "AAPL", Sentiment: domain.SentimentBullish, PublishedAt: now},
	}
	for i := range cards {
		s.Require().NoError(store.Upsert(s.ctx, &cards[i], i))
	}

	got, err := store.FetchCards(s.ctx)
	s.NoError(err)
	s.Require().Len(got, 3)
	s.Equal([]int64{30, 10, 20}, []int64{got[0].ID, got[1].ID, got[2].ID})
	s.Equal(domain.SentimentBearish, got[1].Sentiment)
	s.Equal("detail", *got[1].Detail)
	s.Nil(got[0].Detail)
	s.Equal("https://example.com/a.jpg", *got[2].ImageURL)
	s.WithinDuration(now, got[0].PublishedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestCardStore_UpsertUpdatesAndDeactivate() {
	store := NewCardStore(s.db)

	card := &domain.Card{ID: 1, Title: "Old", Summary: "s", Ticker: "AAPL", Sentiment: domain.SentimentBullish}
	s.Require().NoError(store.Upsert(s.ctx, card, 0))

	card.Title = "New"
	s.Require().NoError(store.Upsert(s.ctx, card, 0))

	got, err := store.FetchCards(s.ctx)
	s.NoError(err)
	s.Require().Len(got, 1)
	s.Equal("New", got[0].Title)

	s.NoError(store.Deactivate(s.ctx, 1))
	got, err = store.FetchCards(s.ctx)
	s.NoError(err)
	s.Empty(got)
}

func (s *PostgresIntegrationSuite) TestBookmarkStore_SetIsIdempotent() {
	store := NewBookmarkStore(s.db)

	s.NoError(store.Set(s.ctx, "alice", 5, true))
	s.NoError(store.Set(s.ctx, "alice", 5, true))
	s.NoError(store.Set(s.ctx, "alice", 2, true))
	s.NoError(store.Set(s.ctx, "bob", 9, true))

	ids, err := store.List(s.ctx, "alice")
	s.NoError(err)
	s.Equal([]int64{2, 5}, ids)

	s.NoError(store.Set(s.ctx, "alice", 5, false))
	s.NoError(store.Set(s.ctx, "alice", 5, false))

	ids, err = store.List(s.ctx, "alice")
	s.NoError(err)
	s.Equal([]int64{2}, ids)
}

func (s *PostgresIntegrationSuite) TestSessionStateStore_GetNew() {
	store := NewSessionStateStore(s.db)

	state, err := store.Get(s.ctx, "new-session")
	s.NoError(err)
	s.Equal("new-session", state.SessionID)
	s.Equal(0, state.Cursor)
	s.Equal(1, state.Pass)
	s.Empty(state.Liked)
}

func (s *PostgresIntegrationSuite) TestSessionStateStore_UpdateAndGet() {
	store := NewSessionStateStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	state := &domain.SessionState{
		SessionID: "s-1",
		UserID:    "alice",
		Cursor:    2,
		Pass:      1,
		Total:     5,
		Liked:     []int64{4, 1},
		UpdatedAt: now,
	}
	s.NoError(store.Update(s.ctx, state))

	state.Cursor = 3
	state.Liked = nil
	s.NoError(store.Update(s.ctx, state))

	got, err := store.Get(s.ctx, "s-1")
	s.NoError(err)
	s.Equal("alice", got.UserID)
	s.Equal(3, got.Cursor)
	s.Equal(5, got.Total)
	s.Empty(got.Liked)
	s.WithinDuration(now, got.UpdatedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestRecapStore_SaveAndLatest() {
	store := NewRecapStore(s.db)

	latest, err := store.Latest(s.ctx, "alice")
	s.NoError(err)
	s.Nil(latest)

	_, err = store.Save(s.ctx, &domain.StoredRecap{UserID: "alice", SessionID: "s-1", Pass: 1, CardIDs: []int64{2, 3}})
	s.NoError(err)
	id, err := store.Save(s.ctx, &domain.StoredRecap{UserID: "alice", SessionID: "s-1", Pass: 2, CardIDs: []int64{5}})
	s.NoError(err)

	latest, err = store.Latest(s.ctx, "alice")
	s.NoError(err)
	s.Require().NotNil(latest)
	s.Equal(id, latest.ID)
	s.Equal(2, latest.Pass)
	s.Equal([]int64{5}, latest.CardIDs)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	bookmarks := NewBookmarkStore(s.db)
	recaps := NewRecapStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := bookmarks.Set(ctx, "alice", 1, true); err != nil {
			return err
		}
		_, err := recaps.Save(ctx, &domain.StoredRecap{UserID: "alice", SessionID: "s-tx", Pass: 1, CardIDs: []int64{1}})
		return err
	})
	s.NoError(err)

	ids, err := bookmarks.List(s.ctx, "alice")
	s.NoError(err)
	s.Equal([]int64{1}, ids)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	states := NewSessionStateStore(s.db)
	recaps := NewRecapStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := states.Update(ctx, &domain.SessionState{SessionID: "s-rb", UserID: "alice", Pass: 1, UpdatedAt: time.Now()}); err != nil {
			return err
		}
		if _, err := recaps.Save(ctx, &domain.StoredRecap{UserID: "alice", SessionID: "s-rb", Pass: 1}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM session_state WHERE session_id = $1", "s-rb")
	s.NoError(err)
	s.Equal(0, count)

	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM recaps WHERE session_id = $1", "s-rb")
	s.NoError(err)
	s.Equal(0, count)
}
