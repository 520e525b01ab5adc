package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sentimeter/internal/config"
	"sentimeter/internal/crypto"
	"sentimeter/internal/db"
	"sentimeter/internal/handlers"
	"sentimeter/internal/insights"
	mw "sentimeter/internal/middleware"
	"sentimeter/internal/notify"
	"sentimeter/internal/queue"
	"sentimeter/internal/services"
	"sentimeter/internal/store"
	"sentimeter/internal/survey"
	"sentimeter/internal/textanalysis"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
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

	encSvc, err := newEncryptionService(cfg)
	if err != nil {
		logger.Fatal("failed to build encryption service", zap.Error(err))
	}

	entries := store.NewJournalStore(dbConn)
	settings := store.NewNotificationStore(dbConn)
	surveys := store.NewSurveyStore(dbConn)

	analyzer := textanalysis.NewShared(cfg, logger)
	defer analyzer.Close()

	sender := newEmailSender(cfg, logger)
	notifySvc := notify.NewService(dbConn, settings, sender, encSvc, logger)
	surveySvc := survey.NewService(surveys)

	sentiments := insights.NewSentimentAggregator(entries)
	streaks := insights.NewStreakCalculator(entries)
	search := insights.NewSemanticSearch(entries, analyzer, encSvc)

	authHandler := handlers.NewAuthHandler(dbConn, encSvc, []byte(cfg.JWTSecret))
	userHandler := handlers.NewUserHandler(dbConn, encSvc)
	journalHandler := handlers.NewJournalHandler(entries, jobs, encSvc)
	dashboardHandler := handlers.NewDashboardHandler(entries, sentiments, streaks, search)
	notificationHandler := handlers.NewNotificationHandler(notifySvc)
	surveyHandler := handlers.NewSurveyHandler(surveySvc)
	adminHandler := handlers.NewAdminHandler(dbConn, entries, jobs)
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mw.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/users/me", userHandler.GetMe)
			pr.Put("/users/me", userHandler.UpdateMe)

			pr.Post("/journal", journalHandler.Create)
			pr.Get("/journal", journalHandler.List)
			pr.Get("/journal/recent", journalHandler.Recent)
			pr.Get("/journal/filter", journalHandler.Filter)
			pr.Get("/journal/keyword", journalHandler.ByKeyword)
			pr.Get("/journal/{id}", journalHandler.Get)
			pr.Delete("/journal/{id}", journalHandler.Delete)

			pr.Get("/dashboard/sentiments", dashboardHandler.Sentiments)
			pr.Get("/dashboard/streaks", dashboardHandler.Streaks)
			pr.Get("/dashboard/heatmap", dashboardHandler.Heatmap)
			pr.Get("/dashboard/keywords", dashboardHandler.TopKeywords)
			pr.Get("/dashboard/search", dashboardHandler.Search)

			pr.Get("/notifications/settings", notificationHandler.GetSettings)
			pr.Put("/notifications/settings", notificationHandler.UpdateSettings)
			pr.Post("/notifications/test", notificationHandler.SendTest)
			pr.Get("/notifications/prompts", notificationHandler.Prompts)

			pr.Post("/surveys", surveyHandler.Submit)
			pr.Get("/surveys", surveyHandler.List)

			pr.Get("/admin/overview", adminHandler.Overview)
			pr.Post("/admin/requeue-stuck", adminHandler.RequeueStuck)
		})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = rdb.Close()
	_ = dbConn.Close()
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	if cfg.IsProduction() {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}

func newEncryptionService(cfg *config.Config) (*services.EncryptionService, error) {
	encKey, err := crypto.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	idxKey, err := crypto.DecodeKey(cfg.BlindIndexKey)
	if err != nil {
		return nil, err
	}
	return services.NewEncryptionService(encKey, idxKey)
}

func newEmailSender(cfg *config.Config, logger *zap.Logger) notify.EmailSender {
	if cfg.SendGridAPIKey == "" {
		return notify.NewNoopSender(logger)
	}
	return notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, logger)
}
