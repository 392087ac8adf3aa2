package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/email"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
	"github.com/applypilot/applypilot/internal/storage"
)

// The worker binary runs the queue consumer and the periodic scheduler. It
// shares the database with the API but no in-process state.
func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	var fileStore storage.FileStore
	s3Store, err := storage.NewS3Store(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("init s3", zap.Error(err))
	}
	if s3Store != nil {
		fileStore = s3Store
	}
	sender, err := email.NewSender(ctx, cfg.Email, logger)
	if err != nil {
		logger.Fatal("init email sender", zap.Error(err))
	}

	var generator llm.Generator
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(ctx, cfg.LLM, logger)
		if err != nil {
			logger.Fatal("init llm client", zap.Error(err))
		}
		generator = client
	} else {
		generator = llm.Unconfigured{}
		logger.Warn("no LLM API key set; CUSTOMIZE_RESUME jobs will fail")
	}

	searcher := jobsearch.NewClient(cfg.Search, logger)
	q := queue.New(db, cfg.Queue, logger)

	jobSvc := services.NewJobService(db, searcher, logger)
	matcherSvc := services.NewMatcherService(db, logger)
	scanSvc := services.NewScanService(db, jobSvc, matcherSvc, logger)
	resumeSvc := services.NewResumeService(db, generator, fileStore, logger)
	notificationSvc := services.NewNotificationService(db, sender, logger)

	worker := queue.NewWorker(q, logger)
	queue.NewHandlerSet(q, scanSvc, matcherSvc, resumeSvc, notificationSvc, logger).Register(worker)
	scheduler := queue.NewScheduler(db, q, logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
}
