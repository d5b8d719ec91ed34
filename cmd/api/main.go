package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mediflow/clinic-platform/cmd/mainconfig"
	"github.com/mediflow/clinic-platform/internal/api/router"
	"github.com/mediflow/clinic-platform/internal/auth"
	appconfig "github.com/mediflow/clinic-platform/internal/config"
	"github.com/mediflow/clinic-platform/internal/files"
	"github.com/mediflow/clinic-platform/internal/http/handlers"
	"github.com/mediflow/clinic-platform/internal/identity"
	"github.com/mediflow/clinic-platform/internal/observability/metrics"
	"github.com/mediflow/clinic-platform/internal/prescriptions"
	"github.com/mediflow/clinic-platform/internal/scheduling"
	"github.com/mediflow/clinic-platform/pkg/logging"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		os.Exit(1)
	}

	// database/sql handle for the admin stats queries.
	statsDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open stats db handle", "error", err)
		os.Exit(1)
	}
	defer func() { _ = statsDB.Close() }()

	// Session revocation rides on Redis when configured; without it logout
	// still clears cookies but tokens stay valid until expiry.
	var revocation auth.RevocationStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to reach redis", "error", err)
			os.Exit(1)
		}
		revocation = auth.NewRedisRevocationStore(client)
	}

	sessions := auth.NewSessionManager(auth.SessionConfig{
		DoctorSecret:     cfg.DoctorJWTSecret,
		PatientSecret:    cfg.PatientJWTSecret,
		PharmacistSecret: cfg.PharmacistJWTSecret,
		TTL:              cfg.SessionTTL,
		Secure:           cfg.IsProduction(),
	}, revocation)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
			o.UsePathStyle = true
		}
	})

	registry := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)
	prescriptionMetrics := metrics.NewPrescriptionMetrics(registry)

	// Repositories and services
	identityRepo := identity.NewRepository(pool)
	schedulingRepo := scheduling.NewRepository(pool)
	schedulingService := scheduling.NewService(schedulingRepo, schedulingMetrics, logger)
	prescriptionRepo := prescriptions.NewRepository(pool)
	prescriptionService := prescriptions.NewService(prescriptionRepo, prescriptionMetrics, logger)
	fileRepo := files.NewRepository(pool)
	fileStore := files.NewObjectStore(s3Client, cfg.FilesBucket, cfg.AWSRegion, cfg.FilesPublicBaseURL)

	// Handlers
	authHandler := auth.NewHandler(identityRepo, sessions, auth.NewIDTokenVerifier(cfg.GoogleClientID), logger)
	schedulingHandler := scheduling.NewHandler(schedulingService, schedulingRepo, logger)
	prescriptionHandler := prescriptions.NewHandler(prescriptionService, schedulingRepo, logger)
	fileHandler := files.NewHandler(fileRepo, fileStore, cfg.FileSizeLimitBytes, logger)
	directoryHandler := handlers.NewDirectoryHandler(identityRepo, schedulingRepo, prescriptionService, logger)
	statsHandler := handlers.NewPlatformStatsHandler(statsDB, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Sessions:           sessions,
		Auth:               authHandler,
		Scheduling:         schedulingHandler,
		Prescriptions:      prescriptionHandler,
		Files:              fileHandler,
		Directory:          directoryHandler,
		PlatformStats:      statsHandler,
		AdminToken:         cfg.AdminToken,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
