package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// BookmarkStore persists each user's bookmarked card ids.
type BookmarkStore struct {
	db *sqlx.DB
}

func NewBookmarkStore(db *sqlx.DB) *BookmarkStore {
	return &BookmarkStore{db: db}
}

func (s *BookmarkStore) List(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids,
		"SELECT card_id FROM bookmarks WHERE user_id = $1 ORDER BY card_id",
		userID,
	)
	return ids, err
}

// Set adds or removes one bookmark. Both directions are idempotent.
func (s *BookmarkStore) Set(ctx context.Context, userID string, cardID int64, bookmarked bool) error {
	exec := GetExecutor(ctx, s.db)

	if !bookmarked {
		_, err := exec.ExecContext(ctx,
			"DELETE FROM bookmarks WHERE user_id = $1 AND card_id = $2",
			userID, cardID,
		)
		return err
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO bookmarks (user_id, card_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, card_id) DO NOTHING`,
		userID, cardID,
	)
	return err
}
