package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchwise/internal/config"
	"watchwise/internal/domain"
	"watchwise/internal/scheduler"
	"watchwise/internal/service"
	"watchwise/internal/source/static"
)

func newTestShell(t *testing.T) (*shell, *scheduler.Manual, *bytes.Buffer) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	sched := scheduler.NewManual()
	svc := service.NewSessionService(static.New(), nil, nil, nil, nil, nil, sched, logger,
		config.DeckConfig{TransitionDelay: 300 * time.Millisecond},
		service.Identity{UserID: "test"},
	)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })

	out := &bytes.Buffer{}
	return newShell(svc, out), sched, out
}

func TestShell_WalkDeck(t *testing.T) {
	sh, sched, out := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.Exec(ctx, "drag 40"))
	assert.Contains(t, out.String(), "-> none")

	require.NoError(t, sh.Exec(ctx, "drag 140"))
	require.NoError(t, sh.Exec(ctx, "accept"))
	assert.Contains(t, out.String(), "still leaving")
	sched.Flush()

	for i := 0; i < 4; i++ {
		require.NoError(t, sh.Exec(ctx, "reject"))
		sched.Flush()
	}

	out.Reset()
	require.NoError(t, sh.Exec(ctx, "accept"))
	assert.Contains(t, out.String(), "all caught up")

	out.Reset()
	require.NoError(t, sh.Exec(ctx, "recap"))
	assert.Contains(t, out.String(), "AAPL")
	assert.NotContains(t, out.String(), "TSLA")

	out.Reset()
	require.NoError(t, sh.Exec(ctx, "reset"))
	assert.Contains(t, out.String(), "[1/5]")
}

func TestShell_ShowsNextCardAfterTransition(t *testing.T) {
	sh, sched, out := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.Exec(ctx, "reject"))
	assert.NotContains(t, out.String(), "[2/5]")

	sched.Flush()
	assert.Contains(t, out.String(), "[2/5]  TSLA")

	for i := 0; i < 4; i++ {
		require.NoError(t, sh.Exec(ctx, "accept"))
		sched.Flush()
	}
	assert.Contains(t, out.String(), "all caught up")
}

func TestShell_BookmarkFlipAsk(t *testing.T) {
	sh, _, out := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.Exec(ctx, "bookmark"))
	require.NoError(t, sh.Exec(ctx, "flip"))
	assert.Contains(t, out.String(), "[1/5]* AAPL")
	assert.Contains(t, out.String(), "iPhone revenue")

	require.NoError(t, sh.Exec(ctx, "ask   "))
	require.NoError(t, sh.Exec(ctx, "ask Is this priced in?"))

	out.Reset()
	require.NoError(t, sh.Exec(ctx, "status"))
	assert.Contains(t, out.String(), string(domain.PhaseBrowsing))
	assert.Contains(t, out.String(), "bookmarked [1]")
}

func TestShell_Errors(t *testing.T) {
	sh, _, _ := newTestShell(t)
	ctx := context.Background()

	assert.Error(t, sh.Exec(ctx, "drag far"))
	assert.Error(t, sh.Exec(ctx, "dance"))
	assert.ErrorIs(t, sh.Exec(ctx, "quit"), errQuit)
	assert.NoError(t, sh.Exec(ctx, ""))
}

func TestShell_RunUntilEOF(t *testing.T) {
	sh, _, out := newTestShell(t)

	err := sh.Run(context.Background(), strings.NewReader("help\nstatus\n"))

	require.NoError(t, err)
	assert.Contains(t, out.String(), "commands:")
	assert.Contains(t, out.String(), "card 1 of 5")
}

func TestShell_RunQuit(t *testing.T) {
	sh, _, _ := newTestShell(t)

	err := sh.Run(context.Background(), strings.NewReader("quit\nstatus\n"))

	assert.NoError(t, err)
}
