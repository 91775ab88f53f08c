package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"watchwise/internal/domain"
)

// RecapStore archives the liked cards of every finished pass.
type RecapStore struct {
	db *sqlx.DB
}

func NewRecapStore(db *sqlx.DB) *RecapStore {
	return &RecapStore{db: db}
}

type recapRow struct {
	ID        int64         `db:"id"`
	UserID    string        `db:"user_id"`
	SessionID string        `db:"session_id"`
	Pass      int           `db:"pass"`
	CardIDs   pq.Int64Array `db:"card_ids"`
	CreatedAt time.Time     `db:"created_at"`
}

func (s *RecapStore) Save(ctx context.Context, recap *domain.StoredRecap) (int64, error) {
	query := `
		INSERT INTO recaps (user_id, session_id, pass, card_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, pass) DO UPDATE SET card_ids = EXCLUDED.card_ids
		RETURNING id`

	ids := recap.CardIDs
	if ids == nil {
		ids = []int64{}
	}

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		recap.UserID,
		recap.SessionID,
		recap.Pass,
		pq.Array(ids),
	).Scan(&id)
	return id, err
}

// Latest returns the newest recap for the user, or nil when there is none.
func (s *RecapStore) Latest(ctx context.Context, userID string) (*domain.StoredRecap, error) {
	var row recapRow
	query := `
		SELECT id, user_id, session_id, pass, card_ids, created_at
		FROM recaps
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.StoredRecap{
		ID:        row.ID,
		UserID:    row.UserID,
		SessionID: row.SessionID,
		Pass:      row.Pass,
		CardIDs:   []int64(row.CardIDs),
		CreatedAt: row.CreatedAt,
	}, nil
}
