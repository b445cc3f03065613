package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatehouse", Subsystem: "sweeper",
		Name: "refresh_tokens_deleted_total", Help: "Expired or revoked refresh tokens deleted",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gatehouse", Subsystem: "sweeper",
		Name: "errors_total", Help: "Failed sweeps",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gatehouse", Subsystem: "sweeper",
		Name: "loop_duration_seconds", Help: "Sweep duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	Log  *zap.Logger
	UC   *Usecase
	Tick time.Duration
}

func New(log *zap.Logger, uc *Usecase, tick time.Duration) *Runner {
	return &Runner{Log: log, UC: uc, Tick: tick}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	n, err := r.UC.Tick(ctx)
	if err != nil {
		mErr.Inc()
		r.Log.Warn("sweep error", zap.Error(err))
	}
	if n > 0 {
		mDeleted.Add(float64(n))
		r.Log.Info("swept refresh tokens", zap.Int64("deleted", n))
	}
	mLoopDur.Observe(time.Since(start).Seconds())
}

// Run sweeps once immediately and then every Tick until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
