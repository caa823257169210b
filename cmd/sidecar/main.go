package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eigenda-sidecar/internal/app"
	"eigenda-sidecar/internal/config"
	"eigenda-sidecar/internal/db"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	f := flag.NewFlagSet("sidecar", flag.ExitOnError)
	configPath := f.String("config", "", "path to config.yaml (defaults to config.local.yaml or config.yaml)")
	migrateOnly := f.Bool("migrate-only", false, "migrate the database schema and exit")
	shutdownTimeout := f.Duration("shutdown-timeout", 15*time.Second, "grace period for in-flight HTTP requests")
	_ = f.Parse(os.Args[1:])

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("❌ Invalid log config: %v", err)
	}
	logrus.SetLevel(logger.Level)
	logrus.SetFormatter(logger.Formatter)

	if *migrateOnly {
		gdb, err := db.InitDB(cfg.Database)
		if err != nil {
			logger.Fatalf("❌ Migration failed: %v", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.NewServiceContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("❌ Failed to initialize: %v", err)
	}
	httpErr := container.Start()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigint:
		logger.WithField("signal", sig.String()).Info("🛑 Shutting down")
	case err := <-httpErr:
		logger.WithError(err).Error("❌ HTTP server failed")
		exitCode = 1
	case err := <-container.ProofWorker.Err():
		logger.WithError(err).Error("❌ Proof worker stopped")
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer shutdownCancel()
	container.Stop(shutdownCtx)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
