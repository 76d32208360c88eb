package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/cache"
	"github.com/fjod/go_food/internal/config"
	h "github.com/fjod/go_food/internal/http"
	"github.com/fjod/go_food/internal/orders/repository"
	"github.com/fjod/go_food/internal/orders/service"
	"github.com/fjod/go_food/internal/payment"
	"github.com/fjod/go_food/internal/publisher"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type orderStore interface {
	repository.OrderRepository
	repository.OutboxRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("food-api", cfg.LogLevel)
	log.Info().Str("order_store", cfg.OrderStore).Msg("food-api starting")

	ctx := context.Background()
	var wg sync.WaitGroup

	store, err := openOrderStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open order store")
	}
	defer store.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis ping succeeded")

	provider := payment.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.ProviderTimeout)
	payments := payment.NewService(
		provider,
		payment.NewVerifier(cfg.RazorpayKeySecret),
		cache.NewPaymentLedger(redisClient),
		log,
	)
	orders := service.NewOrdersService(store, cache.NewRedisCache(redisClient), payments)

	// Outbox publisher
	poller := publisher.NewOutboxPoller(store, log, cfg.Brokers()...)
	pollerCtx, pollerCancel := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	// gRPC health for orchestration probes
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen")
	}
	healthServer := health.NewServer()
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("grpc health listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("grpc serve failed")
		}
	}()

	router := h.NewRouter(h.RouterConfig{
		Payments:           payments,
		Orders:             orders,
		Tokens:             auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		FrontendURL:        cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down food-api")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	grpcServer.GracefulStop()
	pollerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		log.Info().Msg("outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn().Msg("outbox poller didn't stop in time")
	}

	if err := poller.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka writer")
	}
	log.Info().Msg("food-api stopped")
}

func openOrderStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (orderStore, error) {
	switch cfg.OrderStore {
	case config.StoreMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		log.Info().Str("uri", cfg.MongoURI).Msg("connected to mongodb")
		return repo, nil

	case config.StoreSQLite:
		repo, err := repository.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(cfg.SQLiteMigrationsPath); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite order store ready")
		return repo, nil

	default:
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		repo, err := repository.NewPostgresRepository(creds)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(creds); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info().Str("host", cfg.DBHost).Msg("database migrations completed")
		return repo, nil
	}
}
