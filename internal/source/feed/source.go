package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"watchwise/internal/domain"
)

const (
	SourceID   = "feed"
	SourceName = "Headline feed"
)

type Config struct {
	BaseURL        string
	PageSize       int
	MaxPages       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source loads the deck from a paged JSON headline feed.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	pageSize       int
	maxPages       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		pageSize:       cfg.PageSize,
		maxPages:       cfg.MaxPages,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

func (s *Source) ID() string {
	return SourceID
}

func (s *Source) Name() string {
	return SourceName
}

// FetchCards reads up to MaxPages pages, keeping feed order and dropping
// repeated ids.
func (s *Source) FetchCards(ctx context.Context) ([]domain.Card, error) {
	var allContent []Content

	for page := 0; page < s.maxPages; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		allContent = append(allContent, resp.Content...)

		s.logger.Debug("fetched page",
			"page", page,
			"cards", len(resp.Content),
			"total", len(allContent),
		)

		if page >= resp.PageInfo.NumPages-1 {
			break
		}
	}

	return s.transform(allContent), nil
}

func (s *Source) fetchPage(ctx context.Context, page int) (*APIResponse, error) {
	url := fmt.Sprintf("%s?pageSize=%d&page=%d", s.baseURL, s.pageSize, page)

	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "WatchWise/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(contents []Content) []domain.Card {
	cards := make([]domain.Card, 0, len(contents))
	seen := make(map[int64]struct{}, len(contents))

	for _, c := range contents {
		if _, ok := seen[c.ID]; ok {
			s.logger.Warn("duplicate card in feed", "id", c.ID)
			continue
		}

		sentiment, ok := parseSentiment(c.Sentiment)
		if !ok {
			s.logger.Warn("unknown sentiment", "id", c.ID, "sentiment", c.Sentiment)
			continue
		}

		card := domain.Card{
			ID:        c.ID,
			Title:     c.Title,
			Summary:   c.Summary,
			Detail:    c.Detail,
			Ticker:    strings.ToUpper(c.Ticker),
			Sentiment: sentiment,
			Category:  c.Category,
			ImageURL:  c.ImageURL,
		}

		if c.Date != "" {
			publishedAt, err := time.Parse(time.RFC3339, c.Date)
			if err != nil {
				s.logger.Warn("failed to parse date",
					"id", c.ID,
					"date", c.Date,
				)
			} else {
				card.PublishedAt = publishedAt
			}
		}

		seen[c.ID] = struct{}{}
		cards = append(cards, card)
	}

	return cards
}

func parseSentiment(v string) (domain.Sentiment, bool) {
	switch domain.Sentiment(strings.ToLower(v)) {
	case domain.SentimentBullish:
		return domain.SentimentBullish, true
	case domain.SentimentBearish:
		return domain.SentimentBearish, true
	default:
		return "", false
	}
}
