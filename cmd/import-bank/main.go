package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/stemsi/quizbank-backend/internal/config"
	"github.com/stemsi/quizbank-backend/internal/database"
	"github.com/stemsi/quizbank-backend/internal/event"
	"github.com/stemsi/quizbank-backend/internal/logger"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/quiz"
	"github.com/stemsi/quizbank-backend/internal/repository"
	"github.com/stemsi/quizbank-backend/internal/service"
	"github.com/stemsi/quizbank-backend/internal/validator"
)

func main() {
	var path string
	var dryRun bool
	flag.StringVar(&path, "file", "", "Path to the question bank JSON file")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the file and print stats without importing")
	flag.Parse()

	if path == "" {
		fmt.Println("Usage: import-bank -file bank.json [-dry-run]")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open bank file")
	}
	defer f.Close()

	bank, err := service.ParseBank(f)
	if err != nil {
		var verr *service.BankValidationError
		if errors.As(err, &verr) {
			keys := make([]string, 0, len(verr.Fields))
			for k := range verr.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %s\n", k, verr.Fields[k])
			}
		}
		log.Fatal().Err(err).Msg("Bank file rejected")
	}

	if dryRun {
		stats := quiz.Stats(bank)
		printStats(&stats)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	events, err := event.Connect(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer events.Close()

	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool), rdb, cfg.BankCacheTTL, events, log)
	stats, err := questionService.Replace(ctx, bank)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to import bank")
	}

	printStats(stats)
}

func printStats(stats *model.BankStats) {
	fmt.Printf("Questions: %d, quota total: %d/%d, ready: %t\n",
		stats.TotalQuestions, stats.QuotaTotal, quiz.TestSize, stats.Ready)
	for _, t := range stats.Themes {
		fmt.Printf("  theme %d %q: pick %d of %d\n", t.ThemeID, t.Title, t.PickCount, t.Available)
	}
}
