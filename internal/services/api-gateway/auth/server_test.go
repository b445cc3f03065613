package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/Gatehouse/internal/domain/user"
	"github.com/NordCoder/Gatehouse/internal/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*harness, *httptest.Server) {
	t.Helper()
	h := newHarness(t)
	mux := http.NewServeMux()
	NewServer(h.uc, zap.NewNop(), 0).Routes(mux)
	srv := httptest.NewServer(Authenticate(h.codec, zap.NewNop())(mux))
	t.Cleanup(srv.Close)
	return h, srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Error
}

func TestHTTP_LoginFlow(t *testing.T) {
	_, srv := newTestServer(t)
	reg := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: goodPassword, ConfirmPassword: goodPassword}

	resp, raw := call(t, srv, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = call(t, srv, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email already registered", errorMessage(t, raw))

	resp, raw = call(t, srv, http.MethodPost, "/api/auth/login", "", LoginInput{Email: "alice@example.com", Password: goodPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var res AuthResult
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, "Bearer", res.TokenType)
	assert.EqualValues(t, 900, res.ExpiresIn)
	assert.Equal(t, "alice@example.com", res.User.Email)

	resp, raw = call(t, srv, http.MethodGet, "/api/auth/me", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me user.Profile
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, res.User.ID, me.ID)

	resp, _ = call(t, srv, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = call(t, srv, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": res.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var rotated AuthResult
	require.NoError(t, json.Unmarshal(raw, &rotated))

	resp, _ = call(t, srv, http.MethodPost, "/api/auth/logout", rotated.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = call(t, srv, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_LockoutStatuses(t *testing.T) {
	_, srv := newTestServer(t)
	reg := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: goodPassword, ConfirmPassword: goodPassword}
	resp, _ := call(t, srv, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	bad := LoginInput{Email: "alice@example.com", Password: badPassword}
	for i := 0; i < 9; i++ {
		resp, raw := call(t, srv, http.MethodPost, "/api/auth/login", "", bad)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid email or password", errorMessage(t, raw))
	}
	resp, raw := call(t, srv, http.MethodPost, "/api/auth/login", "", bad)
	require.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Contains(t, errorMessage(t, raw), "locked")

	resp, raw = call(t, srv, http.MethodPost, "/api/auth/login", "", LoginInput{Email: "alice@example.com", Password: goodPassword})
	require.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Equal(t, "account is locked", errorMessage(t, raw))
}

func TestHTTP_PasswordChangeGuessesLockTheAccount(t *testing.T) {
	_, srv := newTestServer(t)
	reg := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: goodPassword, ConfirmPassword: goodPassword}
	resp, raw := call(t, srv, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var res AuthResult
	require.NoError(t, json.Unmarshal(raw, &res))

	guess := ChangePasswordInput{CurrentPassword: badPassword, NewPassword: "An0ther&Secret!", ConfirmPassword: "An0ther&Secret!"}
	for i := 0; i < 9; i++ {
		resp, _ := call(t, srv, http.MethodPost, "/api/auth/password", res.AccessToken, guess)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}
	resp, _ = call(t, srv, http.MethodPost, "/api/auth/password", res.AccessToken, guess)
	require.Equal(t, http.StatusLocked, resp.StatusCode)

	right := ChangePasswordInput{CurrentPassword: goodPassword, NewPassword: "An0ther&Secret!", ConfirmPassword: "An0ther&Secret!"}
	resp, raw = call(t, srv, http.MethodPost, "/api/auth/password", res.AccessToken, right)
	require.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Equal(t, "account is locked", errorMessage(t, raw))
}

func TestHTTP_BadRequests(t *testing.T) {
	_, srv := newTestServer(t)

	resp, _ := call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c","password":"x","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, srv, http.MethodPost, "/api/auth/login", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := call(t, srv, http.MethodPost, "/api/auth/register", "", RegisterInput{Name: "A", Email: "a@example.com", Password: "weakpassword", ConfirmPassword: "weakpassword"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body.Details, "contain a digit")

	resp, _ = call(t, srv, http.MethodGet, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
