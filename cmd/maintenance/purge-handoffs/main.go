package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/database"
	"github.com/automas/booking-engine/internal/services"
	"github.com/automas/booking-engine/internal/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		dbURLFlag string
		retention time.Duration
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.DurationVar(&retention, "retention", 72*time.Hour, "remove records untouched for longer than this")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Purging never opens payloads, so any key will do
	key, err := utils.ParseKey(fmt.Sprintf("%064x", 0))
	if err != nil {
		log.Fatalf("failed to build key: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	handoff := services.NewHandoffService(database.NewHandoffRepository(db.DB), key, retention, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := handoff.Purge(ctx)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}

	fmt.Printf("Removed %d handoff records (retention %s)\n", removed, retention)
}
