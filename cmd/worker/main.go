package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sentimeter/internal/config"
	"sentimeter/internal/crypto"
	"sentimeter/internal/db"
	"sentimeter/internal/enrich"
	"sentimeter/internal/geo"
	"sentimeter/internal/notify"
	"sentimeter/internal/queue"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
	"sentimeter/internal/textanalysis"
	"sentimeter/internal/weather"
)

// The worker owns everything asynchronous: the enrichment pipeline, reminder
// emails, and the cron beat that feeds both.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	dbConn, err := sqlx.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	ctx := context.Background()
	rdb, err := queue.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	jobs := queue.NewQueue(rdb)

	encKey, err := crypto.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("bad encryption key", zap.Error(err))
	}
	idxKey, err := crypto.DecodeKey(cfg.BlindIndexKey)
	if err != nil {
		logger.Fatal("bad blind index key", zap.Error(err))
	}
	encSvc, err := services.NewEncryptionService(encKey, idxKey)
	if err != nil {
		logger.Fatal("failed to build encryption service", zap.Error(err))
	}

	entries := store.NewJournalStore(dbConn)
	settings := store.NewNotificationStore(dbConn)

	analyzer := textanalysis.NewShared(cfg, logger)
	defer analyzer.Close()

	locations := geo.NewResolver(cfg.OpenWeatherAPIKey, logger)
	conditions := weather.NewClient(cfg.OpenWeatherAPIKey, logger)
	pipeline := enrich.NewPipeline(entries, locations, conditions, analyzer, encSvc, logger)

	var sender notify.EmailSender
	if cfg.SendGridAPIKey != "" {
		sender = notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, logger)
	} else {
		sender = notify.NewNoopSender(logger)
	}
	notifySvc := notify.NewService(dbConn, settings, sender, encSvc, logger)

	worker := queue.NewWorker(rdb, logger, cfg.WorkerConcurrency, cfg.JobMaxRetries,
		time.Duration(cfg.JobTimeoutSeconds)*time.Second)
	worker.Register(enrich.JobTypeEnrichEntry, pipeline.Handler)
	worker.Register(notify.JobTypeJournalReminder, notifySvc.ReminderHandler)
	worker.Register(notify.JobTypeSurveyReminder, notifySvc.SurveyReminderHandler)
	worker.Start()
	logger.Info("worker started", zap.Int("concurrency", cfg.WorkerConcurrency))

	beat := notify.NewBeat(settings, entries, jobs, logger)
	if err := beat.Start(); err != nil {
		logger.Fatal("failed to start beat", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	beat.Stop()
	worker.Stop()
	_ = rdb.Close()
	_ = dbConn.Close()
	logger.Info("worker stopped")
}
