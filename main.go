package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eco2-team/backend/domains/basket/internal/config"
	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/jwt"
	"github.com/eco2-team/backend/domains/basket/internal/logging"
	"github.com/eco2-team/backend/domains/basket/internal/metrics"
	"github.com/eco2-team/backend/domains/basket/internal/mq"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
	"github.com/eco2-team/backend/domains/basket/internal/server"
	"github.com/eco2-team/backend/domains/basket/internal/store"
	"github.com/eco2-team/backend/domains/basket/internal/tracing"
)

func main() {
	cfg := config.Load()

	// The policy is loaded once; a bad file stops startup rather than
	// exporting unredacted telemetry.
	policy, err := redact.LoadPolicy(cfg.RedactPolicyFile)
	if err != nil {
		log.Fatalf("Failed to load redaction policy: %v", err)
	}
	metrics.RedactPolicyRules.WithLabelValues(policy.Version()).Set(float64(len(policy.Rules())))

	// Redaction failures are reported here only, never through the pipelines
	// being redacted.
	local := logging.New(&logging.Config{
		Level:       logging.ParseLevel(cfg.LogLevel),
		Output:      os.Stdout,
		Environment: cfg.Environment,
		Policy:      policy,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.InitTimeout)
	defer cancel()

	traceCfg := tracing.DefaultConfig()
	traceCfg.Enabled = cfg.OTelEnabled
	traceCfg.SamplingRate = cfg.OTelSamplingRate
	traceCfg.Environment = cfg.Environment
	if cfg.OTelEndpoint != "" {
		traceCfg.Endpoint = cfg.OTelEndpoint
	}

	tp, err := tracing.Init(ctx, traceCfg, policy, local)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}

	res, err := tracing.NewResource(ctx, traceCfg)
	if err != nil {
		log.Fatalf("Failed to build telemetry resource: %v", err)
	}
	exportCfg := logging.DefaultExportConfig()
	exportCfg.Enabled = cfg.OTelLogsEnabled
	if cfg.OTelEndpoint != "" {
		exportCfg.Endpoint = cfg.OTelEndpoint
	}
	lp, err := logging.InitProvider(ctx, exportCfg, res, policy, local)
	if err != nil {
		log.Fatalf("Failed to init log export: %v", err)
	}

	logCfg := &logging.Config{
		Level:       logging.ParseLevel(cfg.LogLevel),
		Output:      os.Stdout,
		Environment: cfg.Environment,
		Policy:      policy,
	}
	if lp != nil {
		logCfg.Export = lp.Handler()
	}
	logging.Init(logCfg)
	logger := logging.Default()

	logger.Info("Redaction policy loaded",
		slog.String(constants.ECSFieldRedactPolicy, policy.Version()),
		slog.Int("redact.rules", len(policy.Rules())),
		slog.Bool("otel.traces", tp != nil),
		slog.Bool("otel.logs", lp != nil),
	)

	poolOpts := &store.PoolOptions{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		PoolTimeout:  time.Duration(cfg.RedisPoolTimeoutMs) * time.Millisecond,
		ReadTimeout:  time.Duration(cfg.RedisReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.RedisWriteTimeoutMs) * time.Millisecond,
	}
	logger.Info("Redis pool config",
		slog.Int("pool_size", poolOpts.PoolSize),
		slog.Int("min_idle_conns", poolOpts.MinIdleConns),
		slog.Duration("pool_timeout", poolOpts.PoolTimeout),
	)

	redisStore, err := store.New(ctx, cfg.RedisURL, poolOpts)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisStore.Close()

	verifier, err := jwt.NewVerifier(
		cfg.JWTSecretKey,
		cfg.JWTAlgorithm,
		cfg.JWTIssuer,
		cfg.JWTAudience,
		time.Duration(cfg.JWTClockSkewSec)*time.Second,
		cfg.JWTRequiredScope,
	)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}

	basketServer, err := server.New(verifier, redisStore, logger)
	if err != nil {
		log.Fatalf("Failed to create basket server: %v", err)
	}

	var consumer *mq.OrderStartedConsumer
	if cfg.AMQPURL != "" {
		consumer, err = mq.NewOrderStartedConsumer(cfg.AMQPURL, cfg.AMQPQueue, redisStore, logger)
		if err != nil {
			log.Fatalf("Failed to create event consumer: %v", err)
		}
		consumer.Start()
	}

	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.MetricsPort)
		logger.Info("Starting metrics server", slog.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, server.NewOpsHandler(redisStore.Ping)); err != nil {
			logger.Error("Metrics server error", slog.String(constants.ECSFieldErrorMessage, err.Error()))
		}
	}()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer, health := server.NewGRPCServer()
	go func() {
		logger.Info("Starting gRPC health server", slog.Int("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           basketServer.Handler(),
		ReadHeaderTimeout: constants.InitTimeout,
	}
	go func() {
		logger.Info("Starting basket API", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	health.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String(constants.ECSFieldErrorMessage, err.Error()))
	}
	if consumer != nil {
		consumer.Stop()
	}
	grpcServer.GracefulStop()

	// Flush telemetry last so shutdown logs and spans are still redacted and exported.
	if err := lp.Shutdown(shutdownCtx); err != nil {
		local.Error("Log provider shutdown error", slog.String(constants.ECSFieldErrorMessage, err.Error()))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		local.Error("Tracer provider shutdown error", slog.String(constants.ECSFieldErrorMessage, err.Error()))
	}
	logger.Info("Server stopped")
}
