// Package deck implements the swipe deck state machine behind the news feed.
//
// A deck walks an ordered list of cards exactly once per pass. Each card is left
// with an accept or reject decision; the cursor only moves once the owner reports
// that the exit transition finished. Bookmarks, questions and the flipped detail
// view act on the current card without moving the cursor.
package deck

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"watchwise/internal/domain"
	"watchwise/internal/gesture"
)

const DefaultTransitionDelay = 300 * time.Millisecond

var (
	ErrExhausted         = errors.New("deck exhausted")
	ErrTransitionPending = errors.New("transition pending")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrDuplicateCard     = errors.New("duplicate card id")
	ErrInvalidProgress   = errors.New("invalid progress")
)

type Options struct {
	Interpreter       gesture.Interpreter
	TransitionDelay   time.Duration
	ClearLikedOnReset bool
}

// DefaultOptions matches the feed's stock behaviour.
func DefaultOptions() Options {
	return Options{
		Interpreter:       gesture.New(gesture.DefaultThreshold, gesture.DefaultAffinityRange),
		TransitionDelay:   DefaultTransitionDelay,
		ClearLikedOnReset: true,
	}
}

// Deck is not safe for concurrent use.
type Deck struct {
	cards []domain.Card
	index map[int64]int
	opts  Options

	cursor     int
	pass       int
	bookmarked map[int64]struct{}
	liked      []int64
	likedSet   map[int64]struct{}

	pending  domain.Decision
	seq      uint64
	question string
	flipped  bool
}

func New(cards []domain.Card, opts Options) (*Deck, error) {
	index := make(map[int64]int, len(cards))
	for i, c := range cards {
		if _, ok := index[c.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateCard, c.ID)
		}
		index[c.ID] = i
	}

	return &Deck{
		cards:      slices.Clone(cards),
		index:      index,
		opts:       opts,
		pass:       1,
		bookmarked: make(map[int64]struct{}),
		likedSet:   make(map[int64]struct{}),
	}, nil
}

// RestoreBookmarks marks the given ids as bookmarked. Ids not in the deck are kept
// too: the bookmark collection outlives any single deck.
func (d *Deck) RestoreBookmarks(ids []int64) {
	for _, id := range ids {
		d.bookmarked[id] = struct{}{}
	}
}

// RestoreProgress resumes a pass saved earlier. Only valid before any event was applied.
// Liked cards must lie behind the cursor unless liked is carried across passes.
func (d *Deck) RestoreProgress(cursor, pass int, liked []int64) error {
	if cursor < 0 || cursor > len(d.cards) || pass < 1 {
		return fmt.Errorf("%w: cursor %d pass %d", ErrInvalidProgress, cursor, pass)
	}
	carried := !d.opts.ClearLikedOnReset && pass > 1
	for _, id := range liked {
		i, ok := d.index[id]
		if !ok {
			return fmt.Errorf("%w: liked card %d not in deck", ErrInvalidProgress, id)
		}
		if i >= cursor && !carried {
			return fmt.Errorf("%w: liked card %d not behind cursor", ErrInvalidProgress, id)
		}
	}

	d.cursor = cursor
	d.pass = pass
	d.liked = d.liked[:0]
	clear(d.likedSet)
	for _, id := range liked {
		if _, ok := d.likedSet[id]; ok {
			continue
		}
		d.likedSet[id] = struct{}{}
		d.liked = append(d.liked, id)
	}
	return nil
}

// Apply runs one event through the state machine and returns the effects the
// caller must carry out, in order.
func (d *Deck) Apply(ev Event) ([]Effect, error) {
	switch e := ev.(type) {
	case DragEnd:
		if err := d.checkGesture(); err != nil {
			return nil, err
		}
		return d.decide(d.opts.Interpreter.Classify(e.DX)), nil
	case Swipe:
		switch e.Decision {
		case domain.DecisionNone, domain.DecisionReject, domain.DecisionAccept:
		default:
			return nil, fmt.Errorf("%w: swipe decision %d", ErrUnknownEvent, e.Decision)
		}
		if err := d.checkGesture(); err != nil {
			return nil, err
		}
		return d.decide(e.Decision), nil
	case TransitionComplete:
		return d.complete(e.Seq), nil
	case ToggleBookmark:
		return d.toggleBookmark()
	case SetQuestion:
		if d.Exhausted() {
			return nil, ErrExhausted
		}
		d.question = e.Text
		return nil, nil
	case AskAboutCard:
		return d.ask()
	case Flip:
		if d.Exhausted() {
			return nil, ErrExhausted
		}
		if d.cards[d.cursor].Detail != nil {
			d.flipped = !d.flipped
		}
		return nil, nil
	case Reset:
		return d.reset(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

func (d *Deck) checkGesture() error {
	if d.Exhausted() {
		return ErrExhausted
	}
	if d.pending != domain.DecisionNone {
		return ErrTransitionPending
	}
	return nil
}

func (d *Deck) decide(decision domain.Decision) []Effect {
	card := d.cards[d.cursor]
	signal, ok := domain.PreferenceFor(decision, card.Ticker)
	if !ok {
		return nil
	}

	if decision == domain.DecisionAccept {
		if _, ok := d.likedSet[card.ID]; !ok {
			d.likedSet[card.ID] = struct{}{}
			d.liked = append(d.liked, card.ID)
		}
	}

	d.pending = decision
	d.seq++

	return []Effect{
		PreferenceInferred{Signal: signal},
		ScheduleAdvance{Delay: d.opts.TransitionDelay, Seq: d.seq},
	}
}

func (d *Deck) complete(seq uint64) []Effect {
	if d.pending == domain.DecisionNone || seq != d.seq {
		return nil
	}

	d.pending = domain.DecisionNone
	d.cursor++
	d.question = ""
	d.flipped = false

	effects := []Effect{Advanced{Cursor: d.cursor, Pass: d.pass}}
	if d.Exhausted() {
		effects = append(effects, Exhausted{Recap: d.Recap()})
	}
	return effects
}

func (d *Deck) toggleBookmark() ([]Effect, error) {
	if d.Exhausted() {
		return nil, ErrExhausted
	}

	id := d.cards[d.cursor].ID
	_, had := d.bookmarked[id]
	if had {
		delete(d.bookmarked, id)
	} else {
		d.bookmarked[id] = struct{}{}
	}

	return []Effect{BookmarkToggled{Change: domain.BookmarkChange{
		CardID:     id,
		Bookmarked: !had,
		Set:        d.Bookmarked(),
	}}}, nil
}

func (d *Deck) ask() ([]Effect, error) {
	if d.Exhausted() {
		return nil, ErrExhausted
	}

	question := strings.TrimSpace(d.question)
	if question == "" {
		return nil, nil
	}

	card := d.cards[d.cursor]
	d.question = ""
	return []Effect{HandoffRequested{Handoff: domain.Handoff{
		Title:    card.Title,
		Summary:  card.Summary,
		Ticker:   card.Ticker,
		Question: question,
	}}}, nil
}

func (d *Deck) reset() []Effect {
	// bumping seq orphans any advance still scheduled for the old pass
	d.seq++
	d.pending = domain.DecisionNone
	d.cursor = 0
	d.question = ""
	d.flipped = false
	d.pass++
	if d.opts.ClearLikedOnReset {
		d.liked = nil
		clear(d.likedSet)
	}
	return []Effect{DeckReset{Pass: d.pass}}
}

func (d *Deck) Len() int {
	return len(d.cards)
}

func (d *Deck) Cursor() int {
	return d.cursor
}

func (d *Deck) Pass() int {
	return d.pass
}

func (d *Deck) Exhausted() bool {
	return d.cursor >= len(d.cards)
}

func (d *Deck) Phase() domain.Phase {
	switch {
	case d.Exhausted():
		return domain.PhaseExhausted
	case d.pending != domain.DecisionNone:
		return domain.PhaseTransitioning
	default:
		return domain.PhaseBrowsing
	}
}

// Current returns the card on top of the deck. It panics once the deck is
// exhausted; check Exhausted first.
func (d *Deck) Current() domain.Card {
	if d.Exhausted() {
		panic(fmt.Sprintf("deck: Current called on exhausted deck (cursor %d of %d)", d.cursor, len(d.cards)))
	}
	return d.cards[d.cursor]
}

func (d *Deck) Cards() []domain.Card {
	return slices.Clone(d.cards)
}

func (d *Deck) IsBookmarked(id int64) bool {
	_, ok := d.bookmarked[id]
	return ok
}

func (d *Deck) IsLiked(id int64) bool {
	_, ok := d.likedSet[id]
	return ok
}

// Bookmarked returns the bookmarked ids in ascending order.
func (d *Deck) Bookmarked() []int64 {
	ids := make([]int64, 0, len(d.bookmarked))
	for id := range d.bookmarked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Liked returns the liked ids in the order they were accepted.
func (d *Deck) Liked() []int64 {
	return slices.Clone(d.liked)
}

func (d *Deck) Question() string {
	return d.question
}

func (d *Deck) Flipped() bool {
	return d.flipped
}

// Recap lists the liked cards of the current pass in accept order.
func (d *Deck) Recap() domain.Recap {
	cards := make([]domain.Card, 0, len(d.liked))
	for _, id := range d.liked {
		cards = append(cards, d.cards[d.index[id]])
	}
	return domain.Recap{Pass: d.pass, Cards: cards}
}

func (d *Deck) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Phase:      d.Phase(),
		Cursor:     d.cursor,
		Total:      len(d.cards),
		Pass:       d.pass,
		Bookmarked: d.Bookmarked(),
		Liked:      d.Liked(),
		Question:   d.question,
		Flipped:    d.flipped,
		Pending:    d.pending,
	}
}
