// Package static serves the built-in "Now" deck.
package static

import (
	"context"
	"slices"
	"time"

	"watchwise/internal/domain"
)

const (
	SourceID   = "static"
	SourceName = "Built-in headlines"
)

type Source struct {
	cards []domain.Card
}

// New returns a source over cards, or over the built-in deck when cards is empty.
func New(cards ...domain.Card) *Source {
	if len(cards) == 0 {
		cards = Headlines()
	}
	return &Source{cards: cards}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

func (s *Source) FetchCards(ctx context.Context) ([]domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.cards), nil
}

func ptr(s string) *string {
	return &s
}

func day(d int) time.Time {
	return time.Date(2025, time.October, d, 14, 0, 0, 0, time.UTC)
}

// Headlines is the deck the feed ships with.
func Headlines() []domain.Card {
	return []domain.Card{
		{
			ID:          1,
			Title:       "Apple Announces Record Q4 Revenue, Beats Estimates",
			Summary:     "Revenue hit $94.9B, beating the $89.3B consensus estimate. Services segment grew 24% YoY.",
			Detail:      ptr("iPhone revenue rose 6% while wearables declined. Management guided December-quarter growth in the low-to-mid single digits."),
			Ticker:      "AAPL",
			Sentiment:   domain.SentimentBullish,
			Category:    "Earnings",
			ImageURL:    ptr("https://images.unsplash.com/photo-1611186871348-b1ce696e52c9?w=800&h=600&fit=crop"),
			PublishedAt: day(24),
		},
		{
			ID:          2,
			Title:       "Tesla Shares Drop After Missing Delivery Targets",
			Summary:     "Q4 deliveries came in at 484K, below 500K estimate. Increased competition in China impacting margins.",
			Detail:      ptr("Price cuts in China narrowed the gap with local rivals but pressured automotive gross margin for a third straight quarter."),
			Ticker:      "TSLA",
			Sentiment:   domain.SentimentBearish,
			Category:    "Earnings",
			ImageURL:    ptr("https://images.unsplash.com/photo-1560958089-b8a1929cea89?w=800&h=600&fit=crop"),
			PublishedAt: day(23),
		},
		{
			ID:          3,
			Title:       "Fed Signals Potential Rate Cuts in March Meeting",
			Summary:     "Powell indicates inflation trending toward 2% target. Market now prices 75% probability of March cut.",
			Ticker:      "SPY",
			Sentiment:   domain.SentimentBullish,
			Category:    "Macro",
			ImageURL:    ptr("https://images.unsplash.com/photo-1526304640581-d334cdbbf45e?w=800&h=600&fit=crop"),
			PublishedAt: day(22),
		},
		{
			ID:          4,
			Title:       "NVIDIA Unveils Next-Gen AI Chip Architecture",
			Summary:     "Blackwell Ultra architecture promises 4x inference performance. Major cloud providers committing to orders.",
			Ticker:      "NVDA",
			Sentiment:   domain.SentimentBullish,
			Category:    "Tech",
			ImageURL:    ptr("https://images.unsplash.com/photo-1640955014216-75201056c829?w=800&h=600&fit=crop"),
			PublishedAt: day(21),
		},
		{
			ID:          5,
			Title:       "Microsoft Cloud Growth Slows, Stock Under Pressure",
			Summary:     "Azure growth decelerated to 28% from 32% last quarter. AI spending weighing on operating margins.",
			Ticker:      "MSFT",
			Sentiment:   domain.SentimentBearish,
			Category:    "Earnings",
			ImageURL:    ptr("https://images.unsplash.com/photo-1633419461186-7d40a38105ec?w=800&h=600&fit=crop"),
			PublishedAt: day(20),
		},
	}
}
