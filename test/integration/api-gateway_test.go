//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const itPassword = "Str0ng!Passw0rd"

// Needs the gateway running on postgres with the postgres audit writer and
// the outbox enabled.
func TestLoginFlow_AuditReachesDBAndKafka(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.AGBaseURL+"/healthz", 60*time.Second)
	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	HTTPDoJSON(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/register", "", map[string]string{
		"name": "IT", "email": email, "password": itPassword, "confirm_password": itPassword,
	}, http.StatusCreated)

	HTTPDoJSON(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/login", "", map[string]string{
		"email": email, "password": "Wr0ng!Passw0rd",
	}, http.StatusUnauthorized)

	raw := HTTPDoJSON(t, http.MethodPost, cfg.AGBaseURL+"/api/auth/login", "", map[string]string{
		"email": email, "password": itPassword,
	}, http.StatusOK)
	var res struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(raw, &res))
	HTTPDoJSON(t, http.MethodGet, cfg.AGBaseURL+"/api/auth/me", res.AccessToken, nil, http.StatusOK)

	types := WaitAuditRows(t, db, email, 3, 10*time.Second)
	assert.Equal(t, []string{"REGISTERED", "LOGIN_FAILURE", "LOGIN_SUCCESS"}, types)

	ev, ok := ReadAuditEvent(t, cfg.KafkaBootstrap, cfg.AuditTopic, "it-"+email, email, 30*time.Second)
	require.True(t, ok, "no audit event on %s", cfg.AuditTopic)
	assert.Equal(t, audit.EventRegistered, ev.Type)
}
