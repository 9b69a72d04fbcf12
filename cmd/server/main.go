package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/application"
	"github.com/armada-suites/service-booking/internal/config"
	"github.com/armada-suites/service-booking/internal/events"
	"github.com/armada-suites/service-booking/internal/fx"
	"github.com/armada-suites/service-booking/internal/handler"
	"github.com/armada-suites/service-booking/internal/platform/auth"
	"github.com/armada-suites/service-booking/internal/platform/database"
	"github.com/armada-suites/service-booking/internal/platform/health"
	"github.com/armada-suites/service-booking/internal/platform/kafka"
	"github.com/armada-suites/service-booking/internal/platform/logger"
	"github.com/armada-suites/service-booking/internal/platform/middleware"
	"github.com/armada-suites/service-booking/internal/provider"
	"github.com/armada-suites/service-booking/internal/provider/airtel"
	"github.com/armada-suites/service-booking/internal/provider/mtn"
	"github.com/armada-suites/service-booking/internal/provider/stripe"
	"github.com/armada-suites/service-booking/internal/repository"
)

const serviceName = "service-booking"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.Server.Environment, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if cfg.IsProduction() {
		if err := database.RunMigrations(cfg.Database.DatabaseURL(), "migrations", log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	} else {
		// Development convenience; production schemas only move through
		// versioned migrations.
		if err := db.AutoMigrate(&repository.GuestModel{}, &repository.BookingModel{}, &repository.PaymentModel{}); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close() //nolint:errcheck
	publisher := events.NewPublisher(producer, log)

	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	txManager := repository.NewTxManager(db)

	var card provider.CardGateway
	if cfg.Stripe.SecretKey != "" {
		card = stripe.NewClient(cfg.Stripe.SecretKey, log)
	} else {
		log.Warn("stripe secret key not set, using mock card gateway")
		card = stripe.NewMockGateway(log)
	}

	var mtnClient, airtelClient provider.MobileMoneyClient
	mtnCfg := mtn.Config{
		BaseURL:           cfg.MTN.BaseURL,
		APIKey:            cfg.MTN.APIKey,
		UserID:            cfg.MTN.UserID,
		SubscriptionKey:   cfg.MTN.SubscriptionKey,
		TargetEnvironment: cfg.MTN.TargetEnvironment,
	}
	if mtnCfg.Configured() {
		mtnClient = mtn.NewClient(mtnCfg, log)
	} else {
		log.Warn("mtn momo credentials not set, mtn payments disabled")
	}
	airtelCfg := airtel.Config{
		BaseURL:      cfg.Airtel.BaseURL,
		ClientID:     cfg.Airtel.ClientID,
		ClientSecret: cfg.Airtel.ClientSecret,
		PartnerID:    cfg.Airtel.PartnerID,
	}
	if airtelCfg.Configured() {
		airtelClient = airtel.NewClient(airtelCfg, log)
	} else {
		log.Warn("airtel money credentials not set, airtel payments disabled")
	}

	paymentService := application.NewPaymentService(
		paymentRepo, card, mtnClient, airtelClient,
		fx.NewStaticConverter(), publisher, log,
	)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, paymentRepo, paymentService, publisher, log,
	)

	consumer := events.NewChannelEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, bookingService, log)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("channel event consumer stopped", zap.Error(err))
		}
	}()
	defer consumer.Close() //nolint:errcheck

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(log),
		middleware.CORSMiddleware(),
		middleware.SecurityHeadersMiddleware(),
	)

	health.NewHandler(db, serviceName).RegisterRoutes(router)
	handler.NewWebhookHandler(paymentService, bookingService, cfg.Stripe.WebhookSecret, log).RegisterRoutes(router)

	api := router.Group("/api/v1")
	handler.NewBookingHandler(bookingService, log).RegisterRoutes(api, jwtManager)
	handler.NewPaymentHandler(paymentService, bookingService, log).RegisterRoutes(api, jwtManager)
	handler.NewAdminHandler(paymentService, bookingService, log).RegisterRoutes(api, jwtManager)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
