// Package main provides the contact sync service entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contact-sync/internal/addressbook"
	"github.com/contact-sync/internal/api"
	"github.com/contact-sync/internal/config"
	"github.com/contact-sync/internal/contacts"
	"github.com/contact-sync/internal/directory"
	"github.com/contact-sync/internal/logging"
	"github.com/contact-sync/internal/securestore"
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

	store, err := newStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize secure store")
	}

	accessor, err := newAccessor(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize address book accessor")
	}

	engine := contacts.NewService(&contacts.ServiceConfig{
		Accessor:      accessor,
		Directory:     directory.NewHTTPClient(&cfg.Directory),
		Store:         store,
		ServiceName:   cfg.Contacts.ServiceName,
		DefaultRegion: cfg.Contacts.DefaultRegion,
		BatchSize:     cfg.Directory.BatchSize,
	})

	// Best-effort snapshot preload so early lookups answer from the last
	// persisted state instead of an empty one
	preloadCtx, cancelPreload := context.WithTimeout(context.Background(), 5*time.Second)
	engine.Preload(preloadCtx)
	cancelPreload()
	logger.WithField("state", string(engine.State())).Info("Snapshot preload finished")

	server := api.NewServer(api.DefaultServerConfig(cfg.Server.Host, cfg.Server.Port), engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("API server failed")
	case sig := <-sigCh:
		logger.Infof("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// newStore selects the secure store backend from configuration
func newStore(cfg *config.Config) (securestore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		return securestore.NewRedisStore(&cfg.Store.Redis)
	case config.BackendMemory:
		return securestore.NewMemoryStore(), nil
	default:
		return securestore.NewEncryptedFileStore(cfg.Store.Dir, cfg.Store.Passphrase)
	}
}

// newAccessor builds the address book seam. With a fixture configured the
// service serves that contact set; otherwise it starts empty with
// permission pending.
func newAccessor(cfg *config.Config) (addressbook.Accessor, error) {
	if cfg.Contacts.FixturePath != "" {
		return addressbook.LoadFixture(cfg.Contacts.FixturePath)
	}
	return addressbook.NewStaticAccessor(), nil
}
