package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"watchwise/internal/deck"
	"watchwise/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	FetchCards(ctx context.Context) ([]domain.Card, error)
}

type BookmarkStore interface {
	List(ctx context.Context, userID string) ([]int64, error)
	Set(ctx context.Context, userID string, cardID int64, bookmarked bool) error
}

type SessionStateStore interface {
	Get(ctx context.Context, sessionID string) (*domain.SessionState, error)
	Update(ctx context.Context, state *domain.SessionState) error
}

type RecapStore interface {
	Save(ctx context.Context, recap *domain.StoredRecap) (int64, error)
	Latest(ctx context.Context, userID string) (*domain.StoredRecap, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, effects []deck.Effect) error
	Close() error
}
