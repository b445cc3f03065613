package main

import (
	"context"

	gwaudit "github.com/NordCoder/Gatehouse/internal/audit"
	config "github.com/NordCoder/Gatehouse/internal/config/api-gateway"
	"github.com/NordCoder/Gatehouse/internal/obs/retry"
	outboxrunner "github.com/NordCoder/Gatehouse/internal/outbox"
	kafkarepo "github.com/NordCoder/Gatehouse/internal/repository/kafka"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initAudit builds the configured audit writers behind one dispatcher. The
// returned closer drains the dispatcher before releasing the writers.
func initAudit(cfg *config.Config, st *stores, logger *zap.Logger) (*gwaudit.Dispatcher, func(context.Context)) {
	var (
		writers gwaudit.MultiWriter
		closers []func()
	)
	for _, name := range cfg.Audit.Writers {
		switch name {
		case config.AuditWriterLog:
			writers = append(writers, gwaudit.NewLogWriter(logger))
		case config.AuditWriterPostgres, config.AuditWriterSQLite:
			writers = append(writers, st.audit)
		case config.AuditWriterRedis:
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			writers = append(writers, gwaudit.NewRedisWriter(rdb, cfg.Redis.Stream, cfg.Redis.MaxLen))
			closers = append(closers, func() { _ = rdb.Close() })
		}
	}
	logger.Info("audit writers", zap.Strings("writers", cfg.Audit.Writers))

	d := gwaudit.NewDispatcher(cfg.Audit.AsDispatcherConfig(), writers, logger)
	return d, func(ctx context.Context) {
		if err := d.Close(ctx); err != nil {
			logger.Warn("audit drain", zap.Error(err), zap.Uint64("dropped", d.Dropped()))
		}
		for _, c := range closers {
			c()
		}
	}
}

// startOutbox relays audit rows from the outbox table to Kafka. It is a no-op
// unless the outbox is enabled.
func startOutbox(ctx context.Context, cfg *config.Config, st *stores, logger *zap.Logger) func() {
	if st.outbox == nil {
		return func() {}
	}
	producer := kafkarepo.NewProducer(kafkarepo.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.AuditTopic,
	}, logger)
	dispatch := outboxrunner.NewDispatcher(kafkarepo.NewAuditEvents(producer), retry.PublishPolicy(logger))
	runner := outboxrunner.NewRunner(logger, st.outbox, dispatch, cfg.Outbox.AsRunnerConfig())

	runCtx, cancel := context.WithCancel(ctx)
	runner.Start(runCtx)
	logger.Info("outbox relay started", zap.String("topic", cfg.Kafka.AuditTopic))
	return func() {
		cancel()
		runner.Wait()
		_ = producer.Close()
	}
}
