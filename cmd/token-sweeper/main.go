package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	gw "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	config "github.com/NordCoder/Gatehouse/internal/config/token-sweeper"
	"github.com/NordCoder/Gatehouse/internal/obs"
	pg "github.com/NordCoder/Gatehouse/internal/repository/postgres"
	"github.com/NordCoder/Gatehouse/internal/repository/sqlite"
	sweeper "github.com/NordCoder/Gatehouse/internal/services/token-sweeper"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/token-sweeper.yaml", "path to the yaml config")
	flag.Parse()
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
		Env:    cfg.App.Env,
		Ver:    cfg.App.Version,
	})
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting token-sweeper", zap.Duration("tick", cfg.Sweep.Tick), zap.String("db_driver", cfg.DB.Driver))

	var (
		pruner sweeper.Pruner
		health obs.HealthFunc
	)
	switch cfg.DB.Driver {
	case gw.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			l.Fatal("sqlite open", zap.Error(err))
		}
		defer s.Close()
		pruner, health = s.RefreshTokens(), s.Ping
	default:
		db, err := pg.New(ctx, cfg.DB.AsPostgresConfig())
		if err != nil {
			l.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		pruner, health = pg.NewRefreshTokenRepo(db), db.Ping
	}

	ms := obs.StartMetricsServer(cfg.Sweep.MetricsAddr, health, l)
	runner := sweeper.New(l, sweeper.NewUC(pruner, nil), cfg.Sweep.Tick)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("token-sweeper started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
