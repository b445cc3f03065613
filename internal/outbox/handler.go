package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/outbox"
	"github.com/NordCoder/Gatehouse/internal/obs/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	handlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gatehouse",
		Name:      "outbox_handler_latency_seconds",
		Help:      "Latency of outbox handlers including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Name:      "outbox_handler_errors_total",
		Help:      "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind outbox.Kind, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	name := kind.String()
	if pol.Name == "" {
		pol.Name = "outbox_" + name
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+name)
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		handlerLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			handlerErrors.WithLabelValues(name).Inc()
		}
		return err
	}
}

// AuditPublisher forwards an encoded audit event to the message bus.
type AuditPublisher interface {
	PublishRaw(ctx context.Context, data []byte) error
}

func NewDispatcher(pub AuditPublisher, pol retry.Policy) outbox.GlobalHandler {
	audit := instrument(outbox.KindAuthAudit, pub.PublishRaw, pol)
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindAuthAudit:
			return audit, nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
