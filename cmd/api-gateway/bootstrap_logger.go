package main

import (
	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
