package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/fleetflow/fleetsync/internal/config"
	"github.com/fleetflow/fleetsync/internal/events"
	"github.com/fleetflow/fleetsync/internal/repository"
	"github.com/fleetflow/fleetsync/internal/service"
	transportServer "github.com/fleetflow/fleetsync/internal/transport/server"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "fleetsync-server",
		Short:        "Fleet tracking server with live event push",
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

	db, err := sql.Open("sqlite3", cfg.FleetDBPath)
	if err != nil {
		return err
	}
	// SQLite: одно соединение вместо SQLITE_BUSY при конкурентных запросах.
	db.SetMaxOpenConns(1)
	defer db.Close()

	repo := repository.NewFleetRepository(db)
	if err := repo.Init(); err != nil {
		return err
	}
	if cfg.Seed {
		if err := repo.Seed(); err != nil {
			return err
		}
	}

	broadcaster := events.NewBroadcaster(cfg.MaxSubscriptions, logger)
	fleetService := service.NewFleetService(repo, broadcaster, logger)
	if err := fleetService.StartLicenseSweep(); err != nil {
		return err
	}
	defer fleetService.StopLicenseSweep()

	router := transportServer.SetupRouter(fleetService, broadcaster, cfg.KeepAlive(), logger)
	httpServer := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.ServerAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("Server stopped")
	return nil
}
