package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"watchwise/internal/deck"
	"watchwise/internal/domain"
	"watchwise/internal/service"
)

const help = `commands:
  drag <dx>       end a drag at horizontal offset dx
  accept | reject swipe the current card
  bookmark        toggle the bookmark on the current card
  flip            show or hide the card detail
  ask <question>  ask the assistant about the current card
  reset           start over
  status          show the deck state
  recap           show the liked cards of the last finished pass
  quit`

var errQuit = errors.New("quit")

// lockedWriter serializes writes from the command loop and the timer goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// shell drives a session from text commands, one per line.
type shell struct {
	svc *service.SessionService
	out io.Writer
}

func newShell(svc *service.SessionService, out io.Writer) *shell {
	sh := &shell{svc: svc, out: &lockedWriter{w: out}}
	svc.OnAdvance(sh.advanced)
	return sh
}

// advanced shows the card that slid in once a transition finishes.
func (sh *shell) advanced(snapshot domain.Snapshot, next *domain.Card) {
	sh.writeCard(snapshot, next)
}

func (sh *shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	sh.printCard()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if err := sh.Exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(sh.out, "error: %v\n", err)
			}
		}
	}
}

// Exec runs one command line.
func (sh *shell) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(sh.out, help)
		return nil
	case "quit", "exit":
		return errQuit
	case "drag":
		dx, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("drag needs a number: %w", err)
		}
		g := sh.svc.Gesture()
		fmt.Fprintf(sh.out, "like %.0f%%  nope %.0f%%  tilt %.1f°  -> %s\n",
			g.AcceptAffinity(dx)*100, g.RejectAffinity(dx)*100, g.Rotation(dx), g.Classify(dx))
		return sh.handle(ctx, deck.DragEnd{DX: dx})
	case "accept", "like", "right":
		return sh.handle(ctx, deck.Swipe{Decision: domain.DecisionAccept})
	case "reject", "nope", "left":
		return sh.handle(ctx, deck.Swipe{Decision: domain.DecisionReject})
	case "bookmark":
		return sh.handle(ctx, deck.ToggleBookmark{})
	case "flip":
		if err := sh.handle(ctx, deck.Flip{}); err != nil {
			return err
		}
		sh.printCard()
		return nil
	case "ask":
		if _, err := sh.svc.Handle(ctx, deck.SetQuestion{Text: arg}); err != nil {
			return err
		}
		return sh.handle(ctx, deck.AskAboutCard{})
	case "reset":
		if err := sh.handle(ctx, deck.Reset{}); err != nil {
			return err
		}
		sh.printCard()
		return nil
	case "status":
		sh.printStatus()
		return nil
	case "recap":
		return sh.printRecap(ctx)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (sh *shell) handle(ctx context.Context, ev deck.Event) error {
	snapshot, err := sh.svc.Handle(ctx, ev)
	if errors.Is(err, deck.ErrTransitionPending) {
		fmt.Fprintln(sh.out, "hold on, the card is still leaving")
		return nil
	}
	if errors.Is(err, deck.ErrExhausted) {
		fmt.Fprintln(sh.out, "You're all caught up! Type reset to start over.")
		return nil
	}
	if err != nil {
		return err
	}
	if snapshot.Phase == domain.PhaseTransitioning {
		fmt.Fprintf(sh.out, "%s, next card coming up\n", snapshot.Pending)
	}
	return nil
}

func (sh *shell) printCard() {
	snapshot, err := sh.svc.Snapshot()
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return
	}
	card, ok, err := sh.svc.Current()
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return
	}
	if !ok {
		sh.writeCard(snapshot, nil)
		return
	}
	sh.writeCard(snapshot, &card)
}

func (sh *shell) writeCard(snapshot domain.Snapshot, card *domain.Card) {
	if card == nil {
		fmt.Fprintln(sh.out, "You're all caught up! Check back later for more breaking news.")
		return
	}

	mark := " "
	if slices.Contains(snapshot.Bookmarked, card.ID) {
		mark = "*"
	}

	fmt.Fprintf(sh.out, "[%d/%d]%s %s  %s (%s, %s)\n",
		snapshot.Cursor+1, snapshot.Total, mark, card.Ticker, card.Title, card.Sentiment, card.Category)
	if snapshot.Flipped && card.Detail != nil {
		fmt.Fprintf(sh.out, "    %s\n", *card.Detail)
	} else {
		fmt.Fprintf(sh.out, "    %s\n", card.Summary)
	}
}

func (sh *shell) printStatus() {
	snapshot, err := sh.svc.Snapshot()
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "%s  card %d of %d  pass %d  liked %v  bookmarked %v\n",
		snapshot.Phase, min(snapshot.Cursor+1, snapshot.Total), snapshot.Total, snapshot.Pass,
		snapshot.Liked, snapshot.Bookmarked)
	if snapshot.Phase != domain.PhaseExhausted {
		sh.printCard()
	}
}

func (sh *shell) printRecap(ctx context.Context) error {
	recap, err := sh.svc.Recap(ctx)
	if err != nil {
		return err
	}
	if recap == nil || len(recap.Cards) == 0 {
		fmt.Fprintln(sh.out, "no recap yet: like some cards and finish the deck")
		return nil
	}

	fmt.Fprintf(sh.out, "News recap (pass %d):\n", recap.Pass)
	for _, c := range recap.Cards {
		fmt.Fprintf(sh.out, "  %-5s %s\n", c.Ticker, c.Title)
	}
	return nil
}
