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

// SessionStateStore keeps the cursor and liked set of a browsing session.
type SessionStateStore struct {
	db *sqlx.DB
}

func NewSessionStateStore(db *sqlx.DB) *SessionStateStore {
	return &SessionStateStore{db: db}
}

type sessionStateRow struct {
	ID        int64         `db:"id"`
	SessionID string        `db:"session_id"`
	UserID    string        `db:"user_id"`
	Cursor    int           `db:"cursor_index"`
	Pass      int           `db:"pass"`
	Total     int           `db:"total"`
	Liked     pq.Int64Array `db:"liked"`
	UpdatedAt time.Time     `db:"updated_at"`
}

func (s *SessionStateStore) Get(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var row sessionStateRow
	query := `
		SELECT id, session_id, user_id, cursor_index, pass, total, liked, updated_at
		FROM session_state
		WHERE session_id = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		// fresh session
		return &domain.SessionState{
			SessionID: sessionID,
			Pass:      1,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.SessionState{
		ID:        row.ID,
		SessionID: row.SessionID,
		UserID:    row.UserID,
		Cursor:    row.Cursor,
		Pass:      row.Pass,
		Total:     row.Total,
		Liked:     []int64(row.Liked),
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *SessionStateStore) Update(ctx context.Context, state *domain.SessionState) error {
	query := `
		INSERT INTO session_state (session_id, user_id, cursor_index, pass, total, liked, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			cursor_index = EXCLUDED.cursor_index,
			pass = EXCLUDED.pass,
			total = EXCLUDED.total,
			liked = EXCLUDED.liked,
			updated_at = EXCLUDED.updated_at`

	liked := state.Liked
	if liked == nil {
		liked = []int64{}
	}

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.SessionID,
		state.UserID,
		state.Cursor,
		state.Pass,
		state.Total,
		pq.Array(liked),
		state.UpdatedAt,
	)
	return err
}
