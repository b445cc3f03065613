package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	gwauth "github.com/NordCoder/Gatehouse/internal/services/api-gateway/auth"
	"github.com/NordCoder/Gatehouse/internal/services/api-gateway/users"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/api-gateway.yaml", "path to the yaml config")
	flag.Parse()

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api-gateway",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("db_driver", cfg.DB.Driver),
	)

	flushSentry := initSentry(cfg, logger)
	defer flushSentry()

	otelShutdown, err := initOTel(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStores(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer st.close()

	recorder, closeAudit := initAudit(cfg, st, logger)
	stopOutbox := startOutbox(rootCtx, cfg, st, logger)

	codec, err := authcore.NewCodec([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	hasher, err := authcore.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("password hasher", zap.Error(err))
	}
	authUC, err := gwauth.NewUsecase(gwauth.Deps{
		Users:         st.users,
		RefreshTokens: st.tokens,
		Hasher:        hasher,
		Tokens:        codec,
		Audit:         recorder,
		Log:           logger,
	}, gwauth.Config{
		AccessTTL:        cfg.Auth.AccessTTL,
		RefreshTTL:       cfg.Auth.RefreshTTL,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		Policy:           cfg.Password.AsPolicy(),
	})
	if err != nil {
		logger.Fatal("auth usecase", zap.Error(err))
	}

	httpSrv := buildHTTPServer(cfg, newRouter(routerDeps{
		auth:      authUC,
		users:     users.New(st.users, 0),
		validator: codec,
		health:    st.health,
		service:   cfg.App.Name,
		maxBody:   cfg.Server.MaxBodyBytes,
		log:       logger,
	}))

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case runErr := <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	closeAudit(shCtx)
	stopOutbox()
	logger.Info("bye")
}
