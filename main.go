package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"modestanalytics/api/config"
	"modestanalytics/api/database"
	"modestanalytics/api/digest"
	"modestanalytics/api/handlers"
	"modestanalytics/api/logger"
	"modestanalytics/api/mail"
	"modestanalytics/api/middleware"
	"modestanalytics/api/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbClient, err := database.NewPostgresDB(cfg.Postgres, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize PostgreSQL database", zap.Error(err))
	}
	defer dbClient.Close()

	if err := dbClient.EnsureSchema(context.Background()); err != nil {
		zlog.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	ownerStore := store.NewOwnerStore(dbClient.DB, zlog)
	pageviewStore := store.NewPageviewStore(dbClient.DB, zlog)
	mailer := mail.NewSMTPMailer(cfg.SMTP)

	ownerHandlers := handlers.NewOwnerHandlers(ownerStore, mailer, cfg.PublicURL, zlog)
	trackHandlers := handlers.NewTrackHandlers(ownerStore, pageviewStore, zlog)

	// Weekly digest scheduler runs for the lifetime of the process,
	// independent of request handling.
	dispatcher := digest.NewDispatcher(ownerStore, pageviewStore, mailer, zlog, cfg.Digest.Window)
	trigger := digest.NewTrigger(cfg.Digest.Weekday, cfg.Digest.Hour, cfg.Digest.PollInterval, dispatcher.DispatchAll, zlog)

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go trigger.Run(schedCtx)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	r.POST("/register", ownerHandlers.Register)
	r.POST("/verify", ownerHandlers.Verify)
	r.POST("/pageview", trackHandlers.Pageview)
	r.POST("/heartbeat", trackHandlers.Heartbeat)
	r.StaticFile("/embed.js", "./static/embed.js")
	r.StaticFile("/", "./static/index.html")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("API server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exiting.")
}
