package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"eduportal/internal/config"
	"eduportal/internal/database"
	"eduportal/internal/handlers"
	"eduportal/internal/logging"
	"eduportal/internal/metrics"
	"eduportal/internal/repository"
	"eduportal/internal/service"
)

func main() {
	cfg := config.Load()

	logg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logg.Closer()
	log := logg.Base

	db, err := database.InitializeWithType(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connection established", zap.String("type", cfg.DatabaseType))

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("migrations completed")

	// Repositories
	principalRepo := repository.NewPrincipalRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	questionRepo := repository.NewQuestionRepository(db)

	// Services
	verifier := service.NewCredentialVerifier(principalRepo, log)
	attemptService := service.NewAttemptService(attemptRepo, questionRepo, log)
	sessionManager := service.NewSessionManager(sessionRepo, attemptService, cfg.SessionDuration, log)
	sweeper := service.NewSweeper(attemptRepo, log)

	// Handlers
	mw := handlers.NewMiddleware(sessionManager, principalRepo, cfg, log)
	authHandler := handlers.NewAuthHandler(verifier, sessionManager, cfg, log)
	attemptHandler := handlers.NewAttemptHandler(attemptService, log)
	adminHandler := handlers.NewAdminHandler(sweeper, log)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/{kind}/login", mw.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /auth/{kind}/logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/{kind}/me", authHandler.Me)

	mux.HandleFunc("POST /attempts/start", mw.RequireStudent(attemptHandler.Start))
	mux.HandleFunc("GET /attempts/{id}", mw.RequireStudent(attemptHandler.Get))
	mux.HandleFunc("POST /attempts/{id}/answers", mw.RequireStudent(attemptHandler.SubmitAnswer))
	mux.HandleFunc("POST /attempts/{id}/complete", mw.RequireStudent(attemptHandler.Complete))

	mux.HandleFunc("POST /admin/reconcile", mw.RequireStaff(adminHandler.Reconcile))

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mw.Logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan struct{})
	go runBackground(cfg, sessionManager, sweeper, log, stop)

	go func() {
		log.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// runBackground drives the periodic reconciliation sweep and expired
// session cleanup until stop is closed.
func runBackground(cfg *config.Config, sessions *service.SessionManager, sweeper *service.Sweeper, log *zap.Logger, stop <-chan struct{}) {
	sweepTicker := time.NewTicker(cfg.SweepInterval)
	defer sweepTicker.Stop()
	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			if _, err := sweeper.Run(0); err != nil {
				log.Error("scheduled sweep failed", zap.Error(err))
			}
		case <-cleanupTicker.C:
			if err := sessions.CleanupExpired(); err != nil {
				log.Error("session cleanup failed", zap.Error(err))
			}
		case <-stop:
			return
		}
	}
}
