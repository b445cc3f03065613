package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"github.com/NordCoder/Gatehouse/internal/obs/retry"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gatehouse",
		Subsystem: "audit",
		Name:      "events_total",
		Help:      "Audit events by dispatch result (written, failed, dropped).",
	}, []string{"result"})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gatehouse",
		Subsystem: "audit",
		Name:      "queue_depth",
		Help:      "Events waiting in the audit queue.",
	})
)

type Config struct {
	BufferSize   int
	DropIfFull   bool
	WriteTimeout time.Duration
	Now          func() time.Time
}

type item struct {
	ctx   context.Context
	event audit.Event
}

// Dispatcher is an audit.Recorder that hands events to a Writer on a single
// background goroutine. Record returns as soon as the event is queued.
type Dispatcher struct {
	cfg     Config
	writer  audit.Writer
	log     *zap.Logger
	policy  retry.Policy
	ch      chan item
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	once    sync.Once

	// mu orders sends against Close: nothing enters ch once done is closed.
	mu     sync.RWMutex
	closed bool
}

var _ audit.Recorder = (*Dispatcher)(nil)

func NewDispatcher(cfg Config, w audit.Writer, log *zap.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		cfg:    cfg,
		writer: w,
		log:    log.With(zap.String("component", "audit")),
		policy: retry.AuditWritePolicy(),
		ch:     make(chan item, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Record stamps the event with an id and time when missing and queues it.
// With DropIfFull the call never waits; otherwise it waits for room until
// ctx is done. Events recorded after Close are counted as dropped.
func (d *Dispatcher) Record(ctx context.Context, e audit.Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(e)
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = d.cfg.Now().UTC()
	}
	it := item{ctx: context.WithoutCancel(ctx), event: e}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- it:
			queueDepth.Inc()
		default:
			d.drop(e)
		}
		return
	}
	select {
	case d.ch <- it:
		queueDepth.Inc()
	case <-ctx.Done():
		d.drop(e)
	}
}

func (d *Dispatcher) drop(e audit.Event) {
	d.dropped.Add(1)
	eventsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn("audit event dropped", zap.String("event_type", string(e.Type)))
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case it := <-d.ch:
			d.write(it)
		case <-d.done:
			for {
				select {
				case it := <-d.ch:
					d.write(it)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(it item) {
	queueDepth.Dec()
	ctx, cancel := context.WithTimeout(it.ctx, d.cfg.WriteTimeout)
	defer cancel()

	err := retry.Do(ctx, func() error { return d.writer.Write(ctx, it.event) }, d.policy)
	if err != nil {
		eventsTotal.WithLabelValues("failed").Inc()
		obs.WithTrace(it.ctx, d.log).Error("audit write failed",
			zap.String("event_id", it.event.ID),
			zap.String("event_type", string(it.event.Type)),
			zap.Error(err),
		)
		return
	}
	eventsTotal.WithLabelValues("written").Inc()
}

// Close stops accepting events and blocks until queued ones are written or
// ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()
	})
	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
