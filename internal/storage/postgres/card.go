package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"watchwise/internal/domain"
)

const (
	CardSourceID   = "postgres"
	CardSourceName = "Stored headlines"
)

// CardStore keeps the deck in the cards table. Position orders the deck.
type CardStore struct {
	db *sqlx.DB
}

func NewCardStore(db *sqlx.DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) ID() string {
	return CardSourceID
}

func (s *CardStore) Name() string {
	return CardSourceName
}

func (s *CardStore) Upsert(ctx context.Context, card *domain.Card, position int) error {
	query := `
		INSERT INTO cards (
			id, title, summary, detail, ticker, sentiment, category,
			image_url, published_at, position
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			detail = EXCLUDED.detail,
			ticker = EXCLUDED.ticker,
			sentiment = EXCLUDED.sentiment,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			published_at = EXCLUDED.published_at,
			position = EXCLUDED.position`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		card.ID,
		card.Title,
		card.Summary,
		card.Detail,
		card.Ticker,
		string(card.Sentiment),
		card.Category,
		card.ImageURL,
		card.PublishedAt,
		position,
	)
	if err != nil {
		return fmt.Errorf("upsert card %d: %w", card.ID, err)
	}
	return nil
}

// FetchCards returns every active card in deck order.
func (s *CardStore) FetchCards(ctx context.Context) ([]domain.Card, error) {
	query := `
		SELECT id, title, summary, detail, ticker, sentiment, category, image_url, published_at
		FROM cards
		WHERE active
		ORDER BY position, id`

	var cards []domain.Card
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &cards, query); err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	return cards, nil
}

func (s *CardStore) Deactivate(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, "UPDATE cards SET active = FALSE WHERE id = $1", id)
	return err
}
