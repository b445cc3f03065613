// Package httpx holds the JSON request/response helpers shared by the HTTP
// handlers and the single place where domain errors become status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"go.uber.org/zap"
)

const DefaultMaxBodyBytes = 1 << 20

var ErrBadRequest = errors.New("malformed request body")

type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// DecodeJSON reads exactly one JSON object with no unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrBadRequest)
	}
	return nil
}

// Status maps an error to its HTTP status. Unknown errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, domainauth.ErrPasswordPolicy),
		errors.Is(err, domainauth.ErrPasswordMismatch),
		errors.Is(err, domainauth.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, domainauth.ErrInvalidCredentials),
		errors.Is(err, domainauth.ErrUnauthenticated),
		errors.Is(err, domainauth.ErrInvalidRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, domainauth.ErrAccountDisabled),
		errors.Is(err, domainauth.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, domainauth.ErrAccountLocked),
		errors.Is(err, domainauth.ErrAccountJustLocked):
		return http.StatusLocked
	case errors.Is(err, domainauth.ErrEmailAlreadyRegistered):
		return http.StatusConflict
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the JSON error body for err. 5xx errors are logged and
// reported to sentry, and their message is not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := Status(err)
	body := ErrorBody{Error: err.Error()}

	var pv *domainauth.PolicyViolation
	switch {
	case status >= http.StatusInternalServerError:
		obs.WithTrace(r.Context(), log).Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		obs.CaptureError(r.Context(), err)
		body = ErrorBody{Error: "internal server error"}
	case errors.As(err, &pv):
		body.Details = pv.Rules
	case errors.Is(err, ErrBadRequest):
		body.Error = ErrBadRequest.Error()
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="gatehouse"`)
	}
	WriteJSON(w, status, body)
}
