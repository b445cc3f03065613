package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainauth "github.com/NordCoder/Gatehouse/internal/domain/auth"
	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	cases := map[error]int{
		domainauth.ErrInvalidCredentials:                      http.StatusUnauthorized,
		domainauth.ErrAccountLocked:                           http.StatusLocked,
		domainauth.ErrAccountJustLocked:                       http.StatusLocked,
		domainauth.ErrAccountDisabled:                         http.StatusForbidden,
		domainauth.ErrEmailAlreadyRegistered:                  http.StatusConflict,
		domainauth.ErrPasswordMismatch:                        http.StatusBadRequest,
		&domainauth.PolicyViolation{Rules: []string{"x"}}:     http.StatusBadRequest,
		domainauth.ErrUnauthenticated:                         http.StatusUnauthorized,
		domainauth.ErrAccessDenied:                            http.StatusForbidden,
		domainauth.ErrInvalidRefreshToken:                     http.StatusUnauthorized,
		user.ErrNotFound:                                      http.StatusNotFound,
		fmt.Errorf("wrapped: %w", domainauth.ErrAccessDenied): http.StatusForbidden,
		errors.New("disk on fire"):                            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, Status(err), err.Error())
	}
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestWriteError_PolicyDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	err := &domainauth.PolicyViolation{Rules: []string{"contain a digit", "contain an uppercase letter"}}
	WriteError(rr, httptest.NewRequest(http.MethodPost, "/", nil), zap.NewNop(), err)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "password must contain a digit, contain an uppercase letter", body.Error)
	assert.Equal(t, err.Rules, body.Details)
}

func TestWriteError_UnauthorizedChallenge(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), domainauth.ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
}

func TestDecodeJSON(t *testing.T) {
	type in struct {
		Email string `json:"email"`
	}
	decode := func(body string) (in, error) {
		var v in
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := DecodeJSON(httptest.NewRecorder(), r, 64, &v)
		return v, err
	}

	v, err := decode(`{"email":"a@b.c"}`)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", v.Email)

	_, err = decode(`{"email":"a@b.c","admin":true}`)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = decode(`{"email":"a@b.c"} {}`)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = decode(`{"email":"` + strings.Repeat("a", 100) + `"}`)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = decode(``)
	require.ErrorIs(t, err, ErrBadRequest)
}
