// Command seed populates the database with demo data for local development.
package main

import (
	"context"
	"log"

	"arcanum/internal/codec"
	"arcanum/internal/config"
	"arcanum/internal/database"
	"arcanum/internal/seed"

	"github.com/spf13/pflag"
)

func main() {
	numWallets := pflag.Int("wallets", 25, "Number of wallet sessions to create")
	numPosts := pflag.Int("posts", 100, "Number of content items to create")
	shouldClean := pflag.Bool("clean", true, "Clean database before seeding")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	key, err := cfg.ContentKeyBytes()
	if err != nil {
		log.Fatalf("Invalid content key: %v", err)
	}
	contentCodec, err := codec.New(key)
	if err != nil {
		log.Fatalf("Failed to build content codec: %v", err)
	}

	s := seed.NewSeeder(db, contentCodec)

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Demo(context.Background(), *numWallets, *numPosts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
