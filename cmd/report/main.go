package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/logger"
	"github.com/joho/godotenv"
)

// report writes the completion and average score sheets of an existing
// rating store to an .xlsx file. It never seeds or resets the store.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	out := flag.String("out", "peer-review-"+time.Now().Format("2006-01-02")+".xlsx", "output file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to read .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if !models.StoreExists(db) {
		logger.Fatalf("No rating store found for %s %s", cfg.Database.Driver, cfg.Database.DSN)
	}

	ids, _, err := services.NewInitializer(db, &cfg.Review).Initialize(config.InitModeResume)
	if err != nil {
		logger.Fatalf("Failed to load rating store: %v", err)
	}

	tracker := services.NewCompletionTracker(db, ids)
	export := services.NewExportService(ids, tracker, services.NewReportService(db, ids))

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatalf("Failed to create %s: %v", *out, err)
	}
	if err := export.WriteWorkbook(context.Background(), f); err != nil {
		f.Close()
		logger.Fatalf("Failed to write workbook: %v", err)
	}
	if err := f.Close(); err != nil {
		logger.Fatalf("Failed to close %s: %v", *out, err)
	}

	summary, err := tracker.Summary(context.Background())
	if err != nil {
		logger.Fatalf("Failed to summarize completion: %v", err)
	}
	fmt.Printf("Wrote %s: %d completed, %d pending, %d not started\n",
		*out, len(summary.Completed), len(summary.Pending), len(summary.NotStarted))
}
