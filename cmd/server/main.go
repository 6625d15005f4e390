package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/irfndi/histwindow-go/internal/api"
	"github.com/irfndi/histwindow-go/internal/api/handlers"
	"github.com/irfndi/histwindow-go/internal/cache"
	"github.com/irfndi/histwindow-go/internal/calendar"
	"github.com/irfndi/histwindow-go/internal/config"
	"github.com/irfndi/histwindow-go/internal/database"
	"github.com/irfndi/histwindow-go/internal/feed"
	"github.com/irfndi/histwindow-go/internal/history"
	"github.com/irfndi/histwindow-go/internal/logging"
	"github.com/irfndi/histwindow-go/internal/pit"
	"github.com/irfndi/histwindow-go/internal/telemetry"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger.LogStartup("histwindow", version, cfg.Server.Port)

	ctx := context.Background()

	tcfg := telemetry.DefaultConfig()
	tcfg.Environment = cfg.Environment
	provider, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	dailyCal, minuteCal, err := buildCalendars(cfg.Calendar)
	if err != nil {
		log.Fatalf("Failed to build calendars: %v", err)
	}

	analytics := cache.NewAnalytics(redis.Client)
	if err := analytics.Restore(ctx); err != nil {
		logger.WithError(err).Warn("could not restore cache analytics")
	}

	traced := database.NewTracedDB(db.Pool)
	adjustments := database.NewAdjustmentRepository(traced)
	dailyLoader := history.NewLoader("daily", dailyCal,
		database.NewBarRepository(traced, dailyCal), adjustments,
		analytics, cfg.History.DailyPrefetch, logger.Logger())
	minuteLoader := history.NewLoader("minute", minuteCal,
		database.NewBarRepository(traced, minuteCal), adjustments,
		analytics, cfg.History.MinutePrefetch, logger.Logger())

	feedClient := feed.NewClient(&cfg.Feed)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, logger, api.Handlers{
		Health:  handlers.NewHealthHandler(db, redis, version),
		History: handlers.NewHistoryHandler(dailyLoader, minuteLoader, dailyCal, minuteCal),
		Pit:     handlers.NewPitHandler(feedClient, dailyCal, pit.NewRegistry()),
		Cache:   handlers.NewCacheHandler(analytics),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Logger().Info("server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogShutdown("histwindow", "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := analytics.Persist(shutdownCtx); err != nil {
		logger.WithError(err).Warn("could not persist cache analytics")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("could not flush telemetry")
	}

	logger.Logger().Info("server exited")
}

func buildCalendars(cfg config.CalendarConfig) (*calendar.Calendar, *calendar.Calendar, error) {
	start, end := cfg.SessionBounds()
	daily, err := calendar.NewWeekday(start, end)
	if err != nil {
		return nil, nil, err
	}
	minute, err := calendar.NewMinutes(daily, cfg.OpenOffset(), cfg.MinutesPerSession)
	if err != nil {
		return nil, nil, err
	}
	return daily, minute, nil
}
