package domain

import "time"

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
)

// Card is one feed item. Cards are never mutated once loaded into a deck.
type Card struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Summary     string    `json:"summary" db:"summary"`
	Detail      *string   `json:"detail,omitempty" db:"detail"`
	Ticker      string    `json:"ticker" db:"ticker"`
	Sentiment   Sentiment `json:"sentiment" db:"sentiment"`
	Category    string    `json:"category" db:"category"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
}

type Decision int

const (
	DecisionNone Decision = iota
	DecisionReject
	DecisionAccept
)

func (d Decision) String() string {
	switch d {
	case DecisionReject:
		return "reject"
	case DecisionAccept:
		return "accept"
	default:
		return "none"
	}
}
