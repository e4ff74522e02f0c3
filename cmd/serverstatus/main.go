package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aireone.xyz/serverstatus/internal/apps/serverstatus"
	"aireone.xyz/serverstatus/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := serverstatus.LoadFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(logging.Options{
		Level: *cfg.LogLevel,
		File:  *cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	app, err := serverstatus.NewApp(cfg.Options(), logger)
	if err != nil {
		logger.Fatal("Error creating app", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start app async since app.Start() is blocking and we need to handle
	// signals concurrently.
	go func() {
		if err := app.Start(context.Background()); err != nil {
			logger.Error("Error starting app", zap.Error(err))
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	logger.Info("Received signal, initiating graceful shutdown...", zap.Stringer("signal", sig))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	// Run shutdown with timeout protection
	shutdownComplete := make(chan error, 1)
	go func() {
		shutdownComplete <- app.Shutdown(shutdownCtx)
	}()

	var exitCode int
	select {
	case err := <-shutdownComplete:
		if err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
			exitCode = 1
		} else {
			logger.Info("Shutdown completed successfully")
			exitCode = 0
		}
	case <-shutdownCtx.Done():
		logger.Error("Shutdown timeout exceeded")
		exitCode = 1
	}

	cancel()
	_ = logger.Sync()
	os.Exit(exitCode)
}
