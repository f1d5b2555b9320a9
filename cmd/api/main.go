package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bigfive-core/internal/app"
	"bigfive-core/internal/config"
	apihttp "bigfive-core/internal/http"
	"bigfive-core/internal/observability"
	"bigfive-core/internal/service"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	if cfg.Environment == "development" {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	shutdownOTel := observability.InitOTel(ctx, logger, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelService,
		Environment: cfg.Environment,
		Version:     version,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})

	a, closeApp, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}
	defer closeApp()

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)

	deps := apihttp.RouterDeps{
		JWT:        jwtSvc,
		Scoring:    apihttp.NewScoringHandler(logger, a.Assignments, a.Scoring, a.Repair, a.Submission),
		Comparison: apihttp.NewComparisonHandler(logger, a.CrossProfile),
		Admin:      apihttp.NewAdminHandler(logger, a.Config, a.Audit),
	}
	if cfg.OTelEnabled {
		deps.ServiceName = cfg.OTelService
	}
	router := apihttp.NewRouter(logger, deps)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
}
