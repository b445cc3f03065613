package audit

import (
	"context"
	"errors"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"go.uber.org/zap"
)

// LogWriter emits every event as a structured log line.
type LogWriter struct {
	log *zap.Logger
}

func NewLogWriter(log *zap.Logger) *LogWriter {
	return &LogWriter{log: log.With(zap.String("component", "audit_log"))}
}

func (w *LogWriter) Write(ctx context.Context, e audit.Event) error {
	fields := []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("event_type", string(e.Type)),
		zap.String("outcome", string(e.Outcome)),
		zap.String("username", e.Username),
		zap.String("ip", e.IP),
		zap.Time("at", e.CreatedAt),
	}
	if e.UserID != nil {
		fields = append(fields, zap.Int64("user_id", *e.UserID))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("reason", e.FailureReason))
	}
	obs.WithTrace(ctx, w.log).Info("auth audit", fields...)
	return nil
}

// MultiWriter writes to every writer and joins their errors.
type MultiWriter []audit.Writer

func (m MultiWriter) Write(ctx context.Context, e audit.Event) error {
	var errs []error
	for _, w := range m {
		if err := w.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
