package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authcore "github.com/NordCoder/Gatehouse/internal/auth"
	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/httpx"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var tokenChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatehouse",
	Subsystem: "auth",
	Name:      "bearer_tokens_total",
	Help:      "Bearer tokens seen by the authenticator, by result.",
}, []string{"result"})

// Authenticate attaches the identity of a valid bearer token to the request
// context. It never rejects: requests without a usable token continue
// anonymously and the handler decides whether that is enough.
func Authenticate(v authcore.TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, ok := identify(r, v, log); ok {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identify(r *http.Request, v authcore.TokenValidator, log *zap.Logger) (ctx context.Context, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			tokenChecks.WithLabelValues("panic").Inc()
			obs.WithTrace(r.Context(), log).Error("token validation panicked", zap.Any("panic", p))
			ctx, ok = nil, false
		}
	}()

	token, found := BearerToken(r.Header.Get("Authorization"))
	if !found {
		return nil, false
	}
	subject, err := v.Validate(token)
	if err != nil {
		tokenChecks.WithLabelValues(rejectReason(err)).Inc()
		obs.WithTrace(r.Context(), log).Debug("bearer token rejected", zap.Error(err))
		return nil, false
	}
	tokenChecks.WithLabelValues("valid").Inc()
	return authcore.WithIdentity(r.Context(), authcore.Identity{Subject: subject}), true
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, authcore.ErrTokenExpired):
		return "expired"
	case errors.Is(err, authcore.ErrTokenSignatureInvalid):
		return "bad_signature"
	default:
		return "malformed"
	}
}

// BearerToken extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authcore.IdentityFromContext(r.Context()).Authenticated() {
			httpx.WriteError(w, r, log, domainauth.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
