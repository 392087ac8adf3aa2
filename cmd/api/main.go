package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/applypilot/applypilot/internal/config"
	"github.com/applypilot/applypilot/internal/database"
	"github.com/applypilot/applypilot/internal/email"
	"github.com/applypilot/applypilot/internal/handlers"
	"github.com/applypilot/applypilot/internal/jobsearch"
	"github.com/applypilot/applypilot/internal/llm"
	"github.com/applypilot/applypilot/internal/queue"
	"github.com/applypilot/applypilot/internal/services"
	"github.com/applypilot/applypilot/internal/storage"
)

func main() {
	// Missing .env is fine in production; config comes from the environment.
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

	// Optional integrations degrade instead of blocking startup.
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
		logger.Warn("no LLM API key set; AI endpoints will answer 500")
	}

	searcher := jobsearch.NewClient(cfg.Search, logger)
	q := queue.New(db, cfg.Queue, logger)
	scheduler := queue.NewScheduler(db, q, logger)

	authSvc := services.NewAuthService(db, sender, logger)
	profileSvc := services.NewProfileService(db, logger)
	jobSvc := services.NewJobService(db, searcher, logger)
	matcherSvc := services.NewMatcherService(db, logger)
	billingSvc := services.NewBillingService(db, logger)
	resumeSvc := services.NewResumeService(db, generator, fileStore, logger)
	applicationSvc := services.NewApplicationService(db, generator, logger)
	interviewSvc := services.NewInterviewService(db, generator, logger)
	notificationSvc := services.NewNotificationService(db, sender, logger)

	router := handlers.NewRouter(cfg, logger, authSvc, handlers.Handlers{
		Auth:          handlers.NewAuthHandler(authSvc),
		Profile:       handlers.NewProfileHandler(profileSvc),
		Jobs:          handlers.NewJobHandler(jobSvc, matcherSvc, profileSvc, q),
		AutoApply:     handlers.NewAutoApplyHandler(q, billingSvc),
		Resume:        handlers.NewResumeHandler(resumeSvc, billingSvc, q),
		Applications:  handlers.NewApplicationHandler(applicationSvc, billingSvc),
		Interview:     handlers.NewInterviewHandler(interviewSvc, billingSvc),
		Notifications: handlers.NewNotificationHandler(notificationSvc),
		Billing:       handlers.NewBillingHandler(billingSvc),
		Cron:          handlers.NewCronHandler(scheduler, q),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
