package deck

import (
	"time"

	"watchwise/internal/domain"
)

// Event is an input to Deck.Apply.
type Event interface {
	isEvent()
}

// DragEnd reports the horizontal displacement at the end of a drag.
type DragEnd struct {
	DX float64
}

// Swipe is a decision made without a drag, e.g. from the accept/reject buttons.
type Swipe struct {
	Decision domain.Decision
}

// TransitionComplete signals that the exit animation for decision Seq has finished.
type TransitionComplete struct {
	Seq uint64
}

type ToggleBookmark struct{}

type SetQuestion struct {
	Text string
}

type AskAboutCard struct{}

// Flip toggles the detail side of the current card.
type Flip struct{}

type Reset struct{}

func (DragEnd) isEvent()            {}
func (Swipe) isEvent()              {}
func (TransitionComplete) isEvent() {}
func (ToggleBookmark) isEvent()     {}
func (SetQuestion) isEvent()        {}
func (AskAboutCard) isEvent()       {}
func (Flip) isEvent()               {}
func (Reset) isEvent()              {}

// Effect is an output of Deck.Apply that the owner of the deck must carry out.
type Effect interface {
	isEffect()
}

// ScheduleAdvance asks the owner to deliver TransitionComplete{Seq} after Delay.
type ScheduleAdvance struct {
	Delay time.Duration
	Seq   uint64
}

type HandoffRequested struct {
	Handoff domain.Handoff
}

type PreferenceInferred struct {
	Signal domain.PreferenceSignal
}

type BookmarkToggled struct {
	Change domain.BookmarkChange
}

// Advanced is emitted every time the cursor moves forward.
type Advanced struct {
	Cursor int
	Pass   int
}

type Exhausted struct {
	Recap domain.Recap
}

type DeckReset struct {
	Pass int
}

func (ScheduleAdvance) isEffect()    {}
func (HandoffRequested) isEffect()   {}
func (PreferenceInferred) isEffect() {}
func (BookmarkToggled) isEffect()    {}
func (Advanced) isEffect()           {}
func (Exhausted) isEffect()          {}
func (DeckReset) isEffect()          {}
