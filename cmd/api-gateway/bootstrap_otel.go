package main

import (
	"context"

	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"go.uber.org/zap"
)

func initOTel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enable {
		logger.Info("tracing enabled", zap.String("endpoint", cfg.OTEL.OTLPEndpoint))
	}
	return closer.Shutdown, nil
}

func initSentry(cfg *config.Config, logger *zap.Logger) func() {
	if cfg.Sentry.DSN == "" {
		return func() {}
	}
	if err := obs.InitSentry(cfg.AsSentryConfig()); err != nil {
		logger.Warn("sentry init", zap.Error(err))
		return func() {}
	}
	logger.Info("sentry enabled")
	return obs.FlushSentry
}
