package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/robofi/dabot/internal/adapters/config"
	"github.com/robofi/dabot/internal/adapters/database"
	"github.com/robofi/dabot/internal/adapters/telegram"
	"github.com/robofi/dabot/internal/adapters/token"
	"github.com/robofi/dabot/internal/dabot"
	"github.com/robofi/dabot/internal/factory"
	"github.com/robofi/dabot/internal/workers"
	"github.com/robofi/dabot/pkg/logger"
	"github.com/robofi/dabot/pkg/worker"
)

// defaultTemplate is the stock bot implementation every deployment can use
const defaultTemplate = "dabot-base"

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("DABot platform starting...",
		zap.String("base_asset", cfg.Platform.BaseAsset),
	)

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// In-memory asset custody; a production deployment swaps in the real
	// transfer service adapter here
	tokens := token.NewLedger()

	manager, botRepo, err := initFactory(ctx, cfg, db, tokens)
	if err != nil {
		return err
	}

	initNotifier(cfg, manager)

	// Periodic snapshot safety net over the per-call state mirror
	snapshotWorker := workers.NewSnapshotWorker(manager, botRepo)
	pw := worker.RunBackground(ctx, snapshotWorker, cfg.Platform.SnapshotInterval)

	logger.Info("DABot platform ready",
		zap.Strings("templates", manager.Templates()),
		zap.String("factory_address", manager.Address()),
	)

	<-ctx.Done()

	logger.Info("shutdown signal received")
	pw.Stop(10 * time.Second)
	return nil
}

// initConfig loads configuration and initializes logger
func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initDatabase initializes database connection and runs migrations
func initDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(db.Conn(), cfg.Platform.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initFactory wires the bot factory with persistence and the stock template
func initFactory(ctx context.Context, cfg *config.Config, db *database.DB, tokens token.Transferor) (*factory.Manager, dabot.Persister, error) {
	botRepo := dabot.NewRepository(db.DB())
	factoryRepo := factory.NewRepository(db.DB())

	manager := factory.NewManager(cfg.Platform.BaseAsset, tokens)
	manager.SetPersister(botRepo)
	manager.SetRepository(factoryRepo)
	manager.AddTemplate(defaultTemplate, nil)

	// Continue the identifier sequence across restarts
	maxID, err := factoryRepo.MaxBotID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bot id sequence: %w", err)
	}
	manager.SeedNextID(maxID + 1)

	return manager, botRepo, nil
}

// initNotifier attaches the Telegram notifier when configured
func initNotifier(cfg *config.Config, manager *factory.Manager) {
	if cfg.Telegram.BotToken == "" {
		logger.Info("telegram notifier disabled (no token provided)")
		return
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		return
	}

	manager.SetNotifier(notifier)
}
