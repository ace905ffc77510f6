package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stashspot/service-booking/internal/application"
	"github.com/stashspot/service-booking/internal/config"
	bookingDomain "github.com/stashspot/service-booking/internal/domain/booking"
	"github.com/stashspot/service-booking/internal/domain/pricing"
	"github.com/stashspot/service-booking/internal/handler"
	"github.com/stashspot/service-booking/internal/platform/auth"
	"github.com/stashspot/service-booking/internal/platform/database"
	"github.com/stashspot/service-booking/internal/platform/health"
	"github.com/stashspot/service-booking/internal/platform/kafka"
	"github.com/stashspot/service-booking/internal/platform/logger"
	"github.com/stashspot/service-booking/internal/platform/middleware"
	"github.com/stashspot/service-booking/internal/ratelimit"
	"github.com/stashspot/service-booking/internal/repository"
	"github.com/stashspot/service-booking/internal/worker"
)

const serviceName = "service-booking"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("service exited with error", zap.Error(err))
	}
}

func run(cfg *config.ServiceConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.DBName,
		SSLMode:  cfg.DB.SSLMode,
	}, log)
	if err != nil {
		return err
	}

	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.UnitModel{},
			&repository.BookingModel{},
			&repository.RuleModel{},
		); err != nil {
			return err
		}
		log.Info("schema migrated")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	limiter := ratelimit.NewFixedWindowLimiter(ratelimit.NewRedisCounterStore(rdb), log)
	guard := ratelimit.NewLocalGuard(cfg.RateLimit.LocalRPS, cfg.RateLimit.LocalBurst)
	guard.StartJanitor(ctx)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()

	bookingRepo := repository.NewGormBookingRepository(db)
	unitRepo := repository.NewGormUnitRepository(db)
	ruleRepo := repository.NewGormRuleRepository(db)

	resolver := bookingDomain.NewAvailabilityResolver(bookingRepo)
	calculator := pricing.NewCalculator(pricing.NewRuleEngine(), decimal.NewFromFloat(cfg.Booking.TaxRate))

	service := application.NewBookingService(
		bookingRepo, unitRepo, ruleRepo,
		resolver, calculator,
		producer, log,
	)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, 15*time.Minute, 7*24*time.Hour)

	paymentConsumer := worker.NewPaymentConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.GroupPrefix+serviceName,
		service, log,
	)
	defer paymentConsumer.Close()
	go func() {
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment consumer stopped", zap.Error(err))
		}
	}()

	sweeper := worker.NewExpirySweeper(
		service,
		cfg.Booking.HoldTTL,
		cfg.Booking.SweepInterval,
		cfg.Booking.SweepBatchSize,
		log,
	)
	go sweeper.Run(ctx)

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.LoggerMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.CORSMiddleware(),
		middleware.SecurityHeadersMiddleware(),
	)

	health.NewHandler(db, serviceName).RegisterRoutes(router)

	api := router.Group("/api/v1")
	handler.NewBookingHandler(service).RegisterRoutes(api, jwtManager, limiter, guard, cfg.RateLimit)
	handler.NewAdminHandler(service).RegisterRoutes(api, jwtManager)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
