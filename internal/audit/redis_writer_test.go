package audit

import (
	"context"
	"testing"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisWriter_Appends(t *testing.T) {
	rdb := newTestRedis(t)
	w := NewRedisWriter(rdb, "audit-test", 0)
	ctx := context.Background()

	uid := int64(42)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(ctx, audit.Event{
		ID: "e1", UserID: &uid, Username: "alice@test.com",
		Type: audit.EventLoginFailure, Outcome: audit.OutcomeFailure,
		FailureReason: "invalid password", IP: "10.0.0.1", CreatedAt: at,
	}))
	require.NoError(t, w.Write(ctx, audit.Event{ID: "e2", Username: "ghost@test.com", Type: audit.EventLoginFailure, Outcome: audit.OutcomeFailure}))

	msgs, err := rdb.XRange(ctx, "audit-test", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	first := msgs[0].Values
	assert.Equal(t, "e1", first["id"])
	assert.Equal(t, "42", first["user_id"])
	assert.Equal(t, "LOGIN_FAILURE", first["event_type"])
	assert.Equal(t, "invalid password", first["failure_reason"])
	assert.Equal(t, at.Format(time.RFC3339Nano), first["created_at"])

	_, hasUser := msgs[1].Values["user_id"]
	assert.False(t, hasUser)
}

func TestRedisWriter_Error(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	err := NewRedisWriter(rdb, "", 0).Write(context.Background(), audit.Event{ID: "e"})
	require.Error(t, err)
}
