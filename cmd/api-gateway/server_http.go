package main

import (
	"net/http"
	"time"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	"github.com/NordCoder/Gatehouse/internal/httpx"
	"github.com/NordCoder/Gatehouse/internal/obs"
	gwauth "github.com/NordCoder/Gatehouse/internal/services/api-gateway/auth"
	"github.com/NordCoder/Gatehouse/internal/services/api-gateway/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type routerDeps struct {
	auth      *gwauth.Usecase
	users     *users.Usecase
	validator authcore.TokenValidator
	health    obs.HealthFunc
	service   string
	maxBody   int64
	log       *zap.Logger
	now       func() time.Time
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// newRouter is the whole public surface. Every request passes the
// authenticator; handlers that need an identity reject anonymous callers.
func newRouter(d routerDeps) http.Handler {
	if d.now == nil {
		d.now = time.Now
	}
	mux := http.NewServeMux()
	gwauth.NewServer(d.auth, d.log, d.maxBody).Routes(mux)
	users.NewServer(d.users, d.log, d.maxBody).Routes(mux)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "UP", Timestamp: d.now().UTC(), Service: d.service})
	})
	mux.Handle("GET /healthz", obs.HealthzHandler(d.health))
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = gwauth.Authenticate(d.validator, d.log)(h)
	h = obs.RequestLogging(d.log, h)
	h = obs.Recover(d.log, h)
	return otelhttp.NewHandler(h, "gatehouse.http")
}

func buildHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
