package domain

import "time"

type Phase string

const (
	PhaseBrowsing      Phase = "browsing"
	PhaseTransitioning Phase = "transitioning"
	PhaseExhausted     Phase = "exhausted"
)

// Snapshot is a read-only copy of the deck state.
type Snapshot struct {
	Phase      Phase
	Cursor     int
	Total      int
	Pass       int
	Bookmarked []int64
	Liked      []int64 // in accept order
	Question   string
	Flipped    bool
	Pending    Decision
}

// Recap lists the cards liked during one pass through the deck.
type Recap struct {
	Pass  int
	Cards []Card
}

func (r Recap) CardIDs() []int64 {
	ids := make([]int64, len(r.Cards))
	for i, c := range r.Cards {
		ids[i] = c.ID
	}
	return ids
}

type SessionState struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	Cursor    int       `db:"cursor_index"`
	Pass      int       `db:"pass"`
	Total     int       `db:"total"`
	Liked     []int64   `db:"-"`
	UpdatedAt time.Time `db:"updated_at"`
}

type StoredRecap struct {
	ID        int64
	UserID    string
	SessionID string
	Pass      int
	CardIDs   []int64
	CreatedAt time.Time
}
