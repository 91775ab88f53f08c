// Package dispatcher delivers deck effects to the observers around the deck.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"watchwise/internal/deck"
	"watchwise/internal/domain"
)

const DefaultSignalTimeout = 5 * time.Second

type HandoffSink interface {
	Handoff(ctx context.Context, h domain.Handoff) error
}

type PreferenceSink interface {
	Signal(ctx context.Context, p domain.PreferenceSignal) error
}

type BookmarkObserver interface {
	BookmarksChanged(change domain.BookmarkChange)
}

// Notifier shows a short notice to the user.
type Notifier interface {
	Notify(message string)
}

type Config struct {
	Handoff       HandoffSink
	Preference    PreferenceSink
	Bookmarks     []BookmarkObserver
	Notifier      Notifier
	SignalTimeout time.Duration
}

// Dispatcher is safe for concurrent use. Every sink is optional.
type Dispatcher struct {
	handoff       HandoffSink
	preference    PreferenceSink
	bookmarks     []BookmarkObserver
	notifier      Notifier
	signalTimeout time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.SignalTimeout <= 0 {
		cfg.SignalTimeout = DefaultSignalTimeout
	}
	return &Dispatcher{
		handoff:       cfg.Handoff,
		preference:    cfg.Preference,
		bookmarks:     cfg.Bookmarks,
		notifier:      cfg.Notifier,
		signalTimeout: cfg.SignalTimeout,
		logger:        logger,
	}
}

// Dispatch delivers the observable effects in order. Effects that belong to the
// deck owner (ScheduleAdvance, Advanced, DeckReset) are skipped. Only a failed
// hand-off is returned; preference signals are delivered in the background.
func (d *Dispatcher) Dispatch(ctx context.Context, effects []deck.Effect) error {
	var handoffErr error
	for _, effect := range effects {
		switch e := effect.(type) {
		case deck.HandoffRequested:
			if err := d.deliverHandoff(ctx, e.Handoff); err != nil && handoffErr == nil {
				handoffErr = err
			}
		case deck.PreferenceInferred:
			d.notify(e.Signal.Message())
			d.deliverSignal(ctx, e.Signal)
		case deck.BookmarkToggled:
			if e.Change.Bookmarked {
				d.notify("Saved to your bookmarks")
			}
			for _, o := range d.bookmarks {
				o.BookmarksChanged(e.Change)
			}
		case deck.Exhausted:
			d.logger.Debug("deck exhausted", "pass", e.Recap.Pass, "liked", len(e.Recap.Cards))
		}
	}
	return handoffErr
}

func (d *Dispatcher) deliverHandoff(ctx context.Context, h domain.Handoff) error {
	if d.handoff == nil {
		d.logger.Warn("no hand-off sink configured, dropping question", "ticker", h.Ticker)
		return nil
	}
	if err := d.handoff.Handoff(ctx, h); err != nil {
		d.logger.Error("hand-off failed", "ticker", h.Ticker, "error", err)
		return fmt.Errorf("hand off question: %w", err)
	}
	d.logger.Debug("handed off question", "ticker", h.Ticker)
	return nil
}

func (d *Dispatcher) deliverSignal(ctx context.Context, p domain.PreferenceSignal) {
	if d.preference == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping preference signal", "kind", p.Kind, "subject", p.Subject)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		sigCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.signalTimeout)
		defer cancel()

		if err := d.preference.Signal(sigCtx, p); err != nil {
			d.logger.Warn("preference signal not delivered",
				"kind", p.Kind,
				"subject", p.Subject,
				"error", err,
			)
		}
	}()
}

func (d *Dispatcher) notify(message string) {
	if d.notifier != nil {
		d.notifier.Notify(message)
	}
}

// Wait blocks until every in-flight preference delivery has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops new background deliveries and waits for the running ones.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.Wait()
	return nil
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(message string) {
	n.Logger.Info(message)
}
