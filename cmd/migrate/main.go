// Package main provides a CLI tool for running directory database migrations.
package main

import (
	"flag"
	"log"

	"github.com/contact-sync/internal/config"
	"github.com/contact-sync/internal/directoryserver"
)

func main() {
	var (
		action = flag.String("action", "up", "Migration action: up, down")
		path   = flag.String("path", "migrations", "Path to migration files")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	databaseURL := cfg.DirectoryDB.DSN() + "?sslmode=disable"

	switch *action {
	case "up":
		log.Println("Running directory migrations...")
		if err := directoryserver.RunMigrations(databaseURL, *path); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Directory migrations completed successfully")
	case "down":
		log.Println("Rolling back last directory migration...")
		if err := directoryserver.RollbackMigrations(databaseURL, *path); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rollback completed successfully")
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}
