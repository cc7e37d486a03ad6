package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/fleetflow/fleetsync/internal/config"
	"github.com/fleetflow/fleetsync/internal/repository"
	"github.com/fleetflow/fleetsync/internal/service"
	transportClient "github.com/fleetflow/fleetsync/internal/transport/client"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "fleetsync-client",
		Short:        "Fleet dashboard sync client with offline snapshot cache",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "config.json", "path to configuration file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	db, err := sql.Open("sqlite3", cfg.CacheDBPath)
	if err != nil {
		return err
	}
	// SQLite: одно соединение вместо SQLITE_BUSY при конкурентных транзакциях.
	db.SetMaxOpenConns(1)
	defer db.Close()

	cache := repository.NewSnapshotCache(db, logger)
	if err := cache.Init(); err != nil {
		return err
	}

	fetcher := transportClient.NewHTTPFetcher(cfg.ClientServerURL)
	syncService := service.NewClientSyncService(cache, fetcher, logger)

	handler := transportClient.NewSubscriptionHandler(
		cfg.ClientServerURL+"/api/events",
		cfg.ReconnectDelay(),
		syncService.HandleEvent,
		logger,
	)
	handler.Connect()
	defer handler.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Первичное наполнение кэша и мониторинг связи.
	syncService.ReconcileAll(ctx)
	syncService.StartConnectivityMonitor(ctx, cfg.ProbeInterval())

	// Graceful shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down client...")
	return nil
}
