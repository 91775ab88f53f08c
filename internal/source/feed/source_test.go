package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchwise/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newSource(url string, maxPages, maxAttempts int) *Source {
	return New(Config{
		BaseURL:        url,
		PageSize:       2,
		MaxPages:       maxPages,
		Timeout:        time.Second,
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, testLogger())
}

func TestFetchCards_Pages(t *testing.T) {
	pages := map[string]APIResponse{
		"0": {
			PageInfo: PageInfo{Page: 0, NumPages: 2, PageSize: 2},
			Content: []Content{
				{ID: 1, Title: "Apple", Ticker: "aapl", Sentiment: "bullish", Date: "2025-10-24T14:00:00Z"},
				{ID: 2, Title: "Tesla", Ticker: "TSLA", Sentiment: "Bearish"},
			},
		},
		"1": {
			PageInfo: PageInfo{Page: 1, NumPages: 2, PageSize: 2},
			Content: []Content{
				{ID: 2, Title: "Tesla again", Ticker: "TSLA", Sentiment: "bearish"},
				{ID: 3, Title: "Mystery", Ticker: "XYZ", Sentiment: "sideways"},
				{ID: 4, Title: "Fed", Ticker: "SPY", Sentiment: "bullish", Date: "yesterday"},
			},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		resp, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cards, err := newSource(srv.URL, 5, 1).FetchCards(context.Background())
	require.NoError(t, err)

	require.Len(t, cards, 3)
	assert.Equal(t, []int64{1, 2, 4}, []int64{cards[0].ID, cards[1].ID, cards[2].ID})
	assert.Equal(t, "AAPL", cards[0].Ticker)
	assert.Equal(t, domain.SentimentBearish, cards[1].Sentiment)
	assert.Equal(t, "Tesla", cards[1].Title, "first occurrence wins")
	assert.Equal(t, time.Date(2025, 10, 24, 14, 0, 0, 0, time.UTC), cards[0].PublishedAt)
	assert.True(t, cards[2].PublishedAt.IsZero())
}

func TestFetchCards_StopsAtMaxPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(APIResponse{
			PageInfo: PageInfo{NumPages: 10},
			Content:  []Content{{ID: int64(calls.Load()), Ticker: "SPY", Sentiment: "bullish"}},
		})
	}))
	defer srv.Close()

	cards, err := newSource(srv.URL, 2, 1).FetchCards(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCards_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(APIResponse{
			PageInfo: PageInfo{NumPages: 1},
			Content:  []Content{{ID: 7, Ticker: "NVDA", Sentiment: "bullish"}},
		})
	}))
	defer srv.Close()

	cards, err := newSource(srv.URL, 1, 3).FetchCards(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchCards_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newSource(srv.URL, 1, 2).FetchCards(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "unexpected status: 500")
}

func TestCalculateBackoff(t *testing.T) {
	s := New(Config{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}, testLogger())

	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
