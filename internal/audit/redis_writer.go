package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// RedisWriter appends events to a Redis stream, trimmed approximately to
// MaxLen entries when MaxLen > 0.
type RedisWriter struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisWriter(rdb redis.UniversalClient, stream string, maxLen int64) *RedisWriter {
	if stream == "" {
		stream = "gatehouse:auth:audit"
	}
	return &RedisWriter{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (w *RedisWriter) Write(ctx context.Context, e audit.Event) error {
	values := map[string]any{
		"id":         e.ID,
		"event_type": string(e.Type),
		"outcome":    string(e.Outcome),
		"username":   e.Username,
		"ip_address": e.IP,
		"user_agent": e.UserAgent,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.UserID != nil {
		values["user_id"] = strconv.FormatInt(*e.UserID, 10)
	}
	if e.FailureReason != "" {
		values["failure_reason"] = e.FailureReason
	}

	args := &redis.XAddArgs{Stream: w.stream, Values: values}
	if w.maxLen > 0 {
		args.MaxLen = w.maxLen
		args.Approx = true
	}
	if err := w.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", w.stream, err)
	}
	return nil
}
