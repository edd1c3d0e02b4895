// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log"

	"arcanum/internal/config"
	"arcanum/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch flag.Arg(0) {
	case "auto":
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		log.Println("Schema is up to date")
		return nil
	case "status":
		tables, err := db.Migrator().GetTables()
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		if len(tables) == 0 {
			log.Println("No tables found; run 'migrate auto' first")
			return nil
		}
		for _, table := range tables {
			log.Printf("table: %s", table)
		}
		return nil
	default:
		return usage()
	}
}
