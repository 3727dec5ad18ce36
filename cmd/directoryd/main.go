// Package main provides the directory lookup service entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contact-sync/internal/config"
	"github.com/contact-sync/internal/directoryserver"
	"github.com/contact-sync/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	db, err := directoryserver.NewPostgresDB(&cfg.DirectoryDB)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to directory database")
	}
	defer db.Close()

	repo := directoryserver.NewUserRepository(db)

	port := getPort()
	server := directoryserver.NewServer(cfg.Server.Host, port, repo)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("Directory server failed")
	case sig := <-sigCh:
		logger.Infof("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// getPort returns the directory server port, defaulting to 8081 so the
// sync service and the directory can share a host in development
func getPort() string {
	if port := os.Getenv("DIRECTORY_SERVER_PORT"); port != "" {
		return port
	}
	return "8081"
}
