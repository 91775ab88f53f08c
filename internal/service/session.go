package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"watchwise/internal/config"
	"watchwise/internal/deck"
	"watchwise/internal/domain"
	"watchwise/internal/gesture"
	"watchwise/internal/scheduler"
)

var ErrNotStarted = errors.New("session not started")

// Identity names the user and browsing session a SessionService works for.
// An empty SessionID starts a new session.
type Identity struct {
	UserID    string
	SessionID string
}

// SessionService owns the deck of one browsing session. It serializes events,
// runs the delayed cursor advance and persists the session around the deck.
// Stores, transaction manager and dispatcher are optional.
type SessionService struct {
	source     Source
	bookmarks  BookmarkStore
	states     SessionStateStore
	recaps     RecapStore
	txManager  TransactionManager
	dispatcher Dispatcher
	sched      scheduler.Scheduler
	logger     *slog.Logger
	config     config.DeckConfig
	userID     string
	sessionID  string

	mu        sync.Mutex
	deck      *deck.Deck
	timer     scheduler.Timer
	lastRecap *domain.Recap
	onAdvance func(snapshot domain.Snapshot, next *domain.Card)
}

func NewSessionService(
	source Source,
	bookmarks BookmarkStore,
	states SessionStateStore,
	recaps RecapStore,
	txManager TransactionManager,
	dispatcher Dispatcher,
	sched scheduler.Scheduler,
	logger *slog.Logger,
	cfg config.DeckConfig,
	id Identity,
) *SessionService {
	if id.SessionID == "" {
		id.SessionID = uuid.NewString()
	}
	if sched == nil {
		sched = scheduler.NewReal()
	}

	return &SessionService{
		source:     source,
		bookmarks:  bookmarks,
		states:     states,
		recaps:     recaps,
		txManager:  txManager,
		dispatcher: dispatcher,
		sched:      sched,
		logger:     logger.With("session", id.SessionID, "user", id.UserID),
		config:     cfg,
		userID:     id.UserID,
		sessionID:  id.SessionID,
	}
}

func (s *SessionService) SessionID() string {
	return s.sessionID
}

// OnAdvance registers fn to run every time the cursor moves, usually from the
// timer goroutine. next is nil once the deck is exhausted. fn runs with the
// session locked and must not call back into the service.
func (s *SessionService) OnAdvance(fn func(snapshot domain.Snapshot, next *domain.Card)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdvance = fn
}

func (s *SessionService) deckOptions() deck.Options {
	return deck.Options{
		Interpreter:       gesture.New(s.config.SwipeThreshold, s.config.AffinityRange),
		TransitionDelay:   s.config.TransitionDelay,
		ClearLikedOnReset: s.config.ClearLiked(),
	}
}

// Start loads the deck and restores what the stores know about the user and session.
func (s *SessionService) Start(ctx context.Context) error {
	cards, err := s.source.FetchCards(ctx)
	if err != nil {
		return fmt.Errorf("fetch cards: %w", err)
	}

	d, err := deck.New(cards, s.deckOptions())
	if err != nil {
		return fmt.Errorf("build deck: %w", err)
	}

	if s.bookmarks != nil {
		ids, err := s.bookmarks.List(ctx, s.userID)
		if err != nil {
			return fmt.Errorf("list bookmarks: %w", err)
		}
		d.RestoreBookmarks(ids)
	}

	if s.states != nil {
		state, err := s.states.Get(ctx, s.sessionID)
		if err != nil {
			return fmt.Errorf("get session state: %w", err)
		}
		s.restore(d, state)
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deck = d
	s.lastRecap = nil
	s.mu.Unlock()

	s.logger.Info("session started",
		"source", s.source.ID(),
		"cards", d.Len(),
		"cursor", d.Cursor(),
		"bookmarked", len(d.Bookmarked()),
	)
	return nil
}

func (s *SessionService) restore(d *deck.Deck, state *domain.SessionState) {
	if state == nil || state.ID == 0 {
		return
	}
	if state.Total != d.Len() {
		s.logger.Warn("stored session does not match deck, starting over",
			"stored_total", state.Total,
			"cards", d.Len(),
		)
		return
	}
	if err := d.RestoreProgress(state.Cursor, state.Pass, state.Liked); err != nil {
		s.logger.Warn("discarding stored session", "error", err)
		return
	}
	s.logger.Debug("resumed session", "cursor", state.Cursor, "pass", state.Pass)
}

// Handle applies one event and carries out its effects. The returned snapshot
// reflects the deck after the event even when an error is returned.
func (s *SessionService) Handle(ctx context.Context, ev deck.Event) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deck == nil {
		return domain.Snapshot{}, ErrNotStarted
	}

	effects, err := s.deck.Apply(ev)
	if err != nil {
		s.logger.Debug("event refused", "event", fmt.Sprintf("%T", ev), "error", err)
		return s.deck.Snapshot(), err
	}

	advanced := false
	for _, effect := range effects {
		switch e := effect.(type) {
		case deck.ScheduleAdvance:
			s.scheduleAdvance(ctx, e)
		case deck.BookmarkToggled:
			s.saveBookmark(ctx, e.Change)
		case deck.Advanced:
			advanced = true
			if !s.deck.Exhausted() {
				s.saveState(ctx)
			}
		case deck.Exhausted:
			recap := e.Recap
			s.lastRecap = &recap
			s.archive(ctx, recap)
		case deck.DeckReset:
			if s.timer != nil {
				s.timer.Stop()
				s.timer = nil
			}
			s.saveState(ctx)
		}
	}

	snapshot := s.deck.Snapshot()

	if advanced && s.onAdvance != nil {
		var next *domain.Card
		if !s.deck.Exhausted() {
			card := s.deck.Current()
			next = &card
		}
		s.onAdvance(snapshot, next)
	}

	if s.dispatcher != nil && len(effects) > 0 {
		if err := s.dispatcher.Dispatch(ctx, effects); err != nil {
			return snapshot, fmt.Errorf("dispatch effects: %w", err)
		}
	}

	return snapshot, nil
}

// scheduleAdvance must be called with s.mu held.
func (s *SessionService) scheduleAdvance(ctx context.Context, e deck.ScheduleAdvance) {
	bg := context.WithoutCancel(ctx)
	seq := e.Seq
	s.timer = s.sched.AfterFunc(e.Delay, func() {
		if _, err := s.Handle(bg, deck.TransitionComplete{Seq: seq}); err != nil {
			s.logger.Error("complete transition", "error", err)
		}
	})
}

func (s *SessionService) saveBookmark(ctx context.Context, change domain.BookmarkChange) {
	if s.bookmarks == nil {
		return
	}
	if err := s.bookmarks.Set(ctx, s.userID, change.CardID, change.Bookmarked); err != nil {
		s.logger.Error("failed to save bookmark",
			"card_id", change.CardID,
			"bookmarked", change.Bookmarked,
			"error", err,
		)
	}
}

func (s *SessionService) sessionState() *domain.SessionState {
	return &domain.SessionState{
		SessionID: s.sessionID,
		UserID:    s.userID,
		Cursor:    s.deck.Cursor(),
		Pass:      s.deck.Pass(),
		Total:     s.deck.Len(),
		Liked:     s.deck.Liked(),
		UpdatedAt: time.Now().UTC(),
	}
}

func (s *SessionService) saveState(ctx context.Context) {
	if s.states == nil {
		return
	}
	if err := s.states.Update(ctx, s.sessionState()); err != nil {
		s.logger.Error("failed to save session state", "error", err)
	}
}

// archive stores the finished pass and its recap together.
func (s *SessionService) archive(ctx context.Context, recap domain.Recap) {
	if s.states == nil && s.recaps == nil {
		return
	}

	err := s.withTransaction(ctx, func(txCtx context.Context) error {
		if s.states != nil {
			if err := s.states.Update(txCtx, s.sessionState()); err != nil {
				return fmt.Errorf("update session state: %w", err)
			}
		}
		if s.recaps != nil {
			_, err := s.recaps.Save(txCtx, &domain.StoredRecap{
				UserID:    s.userID,
				SessionID: s.sessionID,
				Pass:      recap.Pass,
				CardIDs:   recap.CardIDs(),
			})
			if err != nil {
				return fmt.Errorf("save recap: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to archive pass", "pass", recap.Pass, "error", err)
		return
	}

	s.logger.Info("pass finished", "pass", recap.Pass, "liked", len(recap.Cards))
}

func (s *SessionService) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithTransaction(ctx, fn)
}

func (s *SessionService) Snapshot() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deck == nil {
		return domain.Snapshot{}, ErrNotStarted
	}
	return s.deck.Snapshot(), nil
}

// Current returns the card on top of the deck; ok is false once the deck is exhausted.
func (s *SessionService) Current() (card domain.Card, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deck == nil {
		return domain.Card{}, false, ErrNotStarted
	}
	if s.deck.Exhausted() {
		return domain.Card{}, false, nil
	}
	return s.deck.Current(), true, nil
}

func (s *SessionService) Gesture() gesture.Interpreter {
	return gesture.New(s.config.SwipeThreshold, s.config.AffinityRange)
}

// Recap returns the recap of the last finished pass. Without one in memory it
// falls back to the newest stored recap of the user, limited to cards still in
// the deck.
func (s *SessionService) Recap(ctx context.Context) (*domain.Recap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deck == nil {
		return nil, ErrNotStarted
	}
	if s.lastRecap != nil {
		recap := *s.lastRecap
		return &recap, nil
	}
	if s.recaps == nil {
		return nil, nil
	}

	stored, err := s.recaps.Latest(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("latest recap: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	byID := make(map[int64]domain.Card, s.deck.Len())
	for _, c := range s.deck.Cards() {
		byID[c.ID] = c
	}

	recap := &domain.Recap{Pass: stored.Pass}
	for _, id := range stored.CardIDs {
		if c, ok := byID[id]; ok {
			recap.Cards = append(recap.Cards, c)
		}
	}
	return recap, nil
}

// Close stops a pending transition and waits for background deliveries.
func (s *SessionService) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.dispatcher != nil {
		return s.dispatcher.Close()
	}
	return nil
}
