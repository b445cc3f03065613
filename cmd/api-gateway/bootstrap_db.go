package main

import (
	"context"

	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/outbox"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/obs"
	pg "github.com/NordCoder/Gatehouse/internal/repository/postgres"
	"github.com/NordCoder/Gatehouse/internal/repository/sqlite"
	"go.uber.org/zap"
)

// stores is the persistence the gateway runs on, whichever driver backs it.
type stores struct {
	users  user.Repo
	tokens domainauth.RefreshTokenRepo
	audit  audit.Writer
	outbox outbox.Repository // postgres with outbox.enable only
	health obs.HealthFunc
	close  func()
}

func initStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DB.Driver == config.DriverSQLite {
		s, err := sqlite.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.DB.SQLitePath))
		return &stores{
			users:  s.Users(),
			tokens: s.RefreshTokens(),
			audit:  s.Audit(),
			health: s.Ping,
			close:  func() { _ = s.Close() },
		}, nil
	}

	db, err := pg.New(ctx, cfg.DB.AsPostgresConfig())
	if err != nil {
		return nil, err
	}
	st := &stores{
		users:  pg.NewUserRepo(db),
		tokens: pg.NewRefreshTokenRepo(db),
		health: db.Ping,
		close:  db.Close,
	}
	var ob outbox.Repository
	if cfg.Outbox.Enable {
		ob = pg.NewOutboxRepo(db)
		st.outbox = ob
	}
	st.audit = pg.NewAuditRepo(db, pg.NewTransactor(db, logger), ob)
	return st, nil
}
