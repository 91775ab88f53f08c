package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"watchwise/internal/config"
	"watchwise/internal/dispatcher"
	"watchwise/internal/publisher"
	"watchwise/internal/scheduler"
	"watchwise/internal/service"
	"watchwise/internal/source/feed"
	"watchwise/internal/source/static"
	"watchwise/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sessionID := flag.String("session", "", "resume a browsing session by id")
	seed := flag.Bool("seed", false, "store the built-in headlines in the database before starting")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	id := service.Identity{UserID: cfg.UserID, SessionID: *sessionID}
	if id.SessionID == "" {
		id.SessionID = uuid.NewString()
	}

	var db *sqlx.DB
	if cfg.Database.Enabled() {
		db, err = sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		if *seed {
			if err := seedCards(context.Background(), postgres.NewCardStore(db), postgres.NewTransactionManager(db)); err != nil {
				logger.Error("failed to seed cards", "error", err)
				os.Exit(1)
			}
			logger.Info("seeded cards", "count", len(static.Headlines()))
		}
	}

	dispatcherCfg := dispatcher.Config{
		Notifier:      dispatcher.LogNotifier{Logger: logger},
		SignalTimeout: cfg.Deck.SignalTimeout,
	}

	// Initialize RabbitMQ publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:                  cfg.RabbitMQ.URL,
			Exchange:             cfg.RabbitMQ.Exchange,
			HandoffRoutingKey:    cfg.RabbitMQ.HandoffRoutingKey,
			PreferenceRoutingKey: cfg.RabbitMQ.PreferenceRoutingKey,
			HandoffQueue:         cfg.RabbitMQ.HandoffQueue,
			PreferenceQueue:      cfg.RabbitMQ.PreferenceQueue,
			SessionID:            id.SessionID,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()

		dispatcherCfg.Handoff = rabbitMQ
		dispatcherCfg.Preference = rabbitMQ
	}

	source, err := newSource(cfg, db, logger)
	if err != nil {
		logger.Error("failed to set up card source", "error", err)
		os.Exit(1)
	}

	// Initialize stores
	var (
		bookmarks service.BookmarkStore
		states    service.SessionStateStore
		recaps    service.RecapStore
		txManager service.TransactionManager
	)
	if db != nil {
		bookmarks = postgres.NewBookmarkStore(db)
		states = postgres.NewSessionStateStore(db)
		recaps = postgres.NewRecapStore(db)
		txManager = postgres.NewTransactionManager(db)
	}

	sessionService := service.NewSessionService(
		source,
		bookmarks,
		states,
		recaps,
		txManager,
		dispatcher.New(dispatcherCfg, logger),
		scheduler.NewReal(),
		logger,
		cfg.Deck,
		id,
	)
	defer sessionService.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := sessionService.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	logger.Info("starting watchwise",
		"source", source.Name(),
		"session", id.SessionID,
		"swipe_threshold", cfg.Deck.SwipeThreshold,
		"transition_delay", cfg.Deck.TransitionDelay,
	)

	sh := newShell(sessionService, os.Stdout)
	if err := sh.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shell error", "error", err)
		os.Exit(1)
	}
}

func newSource(cfg *config.Config, db *sqlx.DB, logger *slog.Logger) (service.Source, error) {
	switch cfg.Source {
	case config.SourceFeed:
		return feed.New(feed.Config{
			BaseURL:        cfg.Feed.BaseURL,
			PageSize:       cfg.Feed.PageSize,
			MaxPages:       cfg.Feed.MaxPages,
			Timeout:        cfg.Feed.Timeout,
			MaxAttempts:    cfg.Feed.Retry.MaxAttempts,
			InitialBackoff: cfg.Feed.Retry.InitialBackoff,
			MaxBackoff:     cfg.Feed.Retry.MaxBackoff,
		}, logger), nil
	case config.SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres source without database")
		}
		return postgres.NewCardStore(db), nil
	default:
		return static.New(), nil
	}
}

func seedCards(ctx context.Context, store *postgres.CardStore, txManager *postgres.TransactionManager) error {
	return txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for i, card := range static.Headlines() {
			if err := store.Upsert(txCtx, &card, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}
