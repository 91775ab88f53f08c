package domain

// Handoff carries the context of a card to the assistant when the user asks about it.
type Handoff struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Ticker   string `json:"ticker"`
	Question string `json:"question"`
}

type PreferenceKind string

const (
	PreferenceReduce     PreferenceKind = "reduce"
	PreferencePrioritize PreferenceKind = "prioritize"
)

// PreferenceSignal is the inferred preference behind an accept or reject.
type PreferenceSignal struct {
	Kind    PreferenceKind `json:"kind"`
	Subject string         `json:"subject"` // ticker of the swiped card
}

// Message is the short notice shown to the user for the signal.
func (p PreferenceSignal) Message() string {
	if p.Kind == PreferenceReduce {
		return "We'll reduce this type of news for you."
	}
	return "Got it! We'll prioritize this company's news."
}

// PreferenceFor maps a decision to its signal. DecisionNone has no signal.
func PreferenceFor(d Decision, ticker string) (PreferenceSignal, bool) {
	switch d {
	case DecisionReject:
		return PreferenceSignal{Kind: PreferenceReduce, Subject: ticker}, true
	case DecisionAccept:
		return PreferenceSignal{Kind: PreferencePrioritize, Subject: ticker}, true
	default:
		return PreferenceSignal{}, false
	}
}

type BookmarkChange struct {
	CardID     int64
	Bookmarked bool
	Set        []int64 // full bookmarked set after the change, ascending
}
