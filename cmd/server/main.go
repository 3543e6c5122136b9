package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"venue-booking/internal/booking"
	"venue-booking/internal/config"
	"venue-booking/internal/database"
	"venue-booking/internal/handler"
	"venue-booking/internal/middleware"
	"venue-booking/internal/payment"
	"venue-booking/internal/queue"
	"venue-booking/internal/repository"
	"venue-booking/internal/router"
	"venue-booking/internal/scheduler"
	"venue-booking/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "dev" {
		logger.SetFormatter(&logrus.TextFormatter{})
		logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The deferred task scheduler cannot run without Redis, and
		// without it holds never expire and remainders are never
		// charged.
		log.Fatal("redis connect failed")
	}

	store := repository.NewStore(db)
	sched := scheduler.NewRedisScheduler(rdb)
	provider := payment.NewStubProvider(cfg.CheckoutBaseURL)
	notifier := queue.NewPublisher(cfg.RabbitURL, logger)

	engine := booking.NewEngine(store, sched, provider, notifier, logger, booking.Options{
		HoldTTL:              time.Duration(cfg.HoldTTLMin) * time.Minute,
		RemainderMaxAttempts: cfg.RemainderMaxAttempts,
	})
	calendar := booking.NewCalendar(store, nil)
	reconciler := booking.NewReconciler(engine)

	// Seed the back-office account when configured.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash admin password: %v", err)
		}
		admins := repository.NewAdminRepo()
		if err := admins.Ensure(context.Background(), db, cfg.AdminEmail, hash); err != nil {
			log.Fatalf("seed admin account: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Deferred task runner: hold expiry, remainder charges, reminders.
	runner := scheduler.NewRunner(sched, time.Second, logger)
	engine.RegisterTasks(runner)
	go runner.Run(ctx)

	// Notification consumer writes the outbound notification log.
	go queue.StartConsumer(cfg.RabbitURL, logger)

	e := echo.New()
	e.HideBanner = true

	var cache echo.MiddlewareFunc
	if cacheCfg := config.LoadCacheConfig(); cacheCfg.Enabled {
		cache = middleware.NewRedisCache(cacheCfg, rdb)
	}

	router.Register(e, router.Deps{
		Calendar:  handler.NewCalendarHandler(calendar),
		Bookings:  handler.NewBookingHandler(engine),
		Webhooks:  handler.NewWebhookHandler(reconciler, cfg.WebhookSecret, logger),
		Auth:      handler.NewAuthHandler(repository.NewAdminRepo(), db, cfg.JWTSecret, cfg.AccessTTLMin),
		Admin:     handler.NewAdminHandler(engine, store),
		JWTSecret: cfg.JWTSecret,
		Cache:     cache,
	})

	addr := ":" + cfg.Port
	logger.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()
	if err := e.Start(addr); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
