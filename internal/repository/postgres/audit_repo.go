package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
	"github.com/NordCoder/Gatehouse/internal/domain/outbox"
	"github.com/google/uuid"
)

var _ audit.Writer = (*AuditRepo)(nil)

// AuditRepo stores audit events in auth_audit_logs. With an outbox it also
// enqueues each event for Kafka in the same transaction.
type AuditRepo struct {
	db     *DB
	tx     Transactor
	outbox outbox.Repository
}

func NewAuditRepo(db *DB, tx Transactor, ob outbox.Repository) *AuditRepo {
	return &AuditRepo{db: db, tx: tx, outbox: ob}
}

const qAuditInsert = `
INSERT INTO auth_audit_logs (id, user_id, username, event_type, outcome, failure_reason,
                             ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
ON CONFLICT (id) DO NOTHING;`

func (r *AuditRepo) Write(ctx context.Context, e audit.Event) error {
	if r.outbox == nil {
		return r.insert(ctx, e)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := r.insert(ctx, e); err != nil {
			return err
		}
		return r.outbox.Enqueue(ctx, e.ID, outbox.KindAuthAudit, payload)
	})
}

func (r *AuditRepo) insert(ctx context.Context, e audit.Event) error {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return fmt.Errorf("audit event id: %w", err)
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err = r.db.execQueryer(ctx).Exec(ctx, qAuditInsert,
		id, e.UserID, e.Username, string(e.Type), string(e.Outcome),
		e.FailureReason, e.IP, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
