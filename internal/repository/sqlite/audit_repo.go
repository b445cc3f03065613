package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
)

var _ audit.Writer = (*AuditRepo)(nil)

type AuditRepo struct{ s *Store }

func (r *AuditRepo) Write(ctx context.Context, e audit.Event) error {
	var uid sql.NullInt64
	if e.UserID != nil {
		uid = sql.NullInt64{Int64: *e.UserID, Valid: true}
	}
	_, err := r.s.db.ExecContext(ctx, `
INSERT INTO auth_audit_logs (id, user_id, username, event_type, outcome, failure_reason,
                             ip_address, user_agent, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, NULLIF(?6, ''), NULLIF(?7, ''), NULLIF(?8, ''), ?9)
ON CONFLICT (id) DO NOTHING`,
		e.ID, uid, e.Username, string(e.Type), string(e.Outcome),
		e.FailureReason, e.IP, e.UserAgent, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns the most recent events of a user, newest first.
func (r *AuditRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]audit.Event, error) {
	return r.list(ctx, `WHERE user_id = ?1`, userID, limit)
}

// ListByUsername returns recent events recorded under a username snapshot,
// including those with no resolved user.
func (r *AuditRepo) ListByUsername(ctx context.Context, username string, limit int) ([]audit.Event, error) {
	return r.list(ctx, `WHERE username = ?1`, username, limit)
}

func (r *AuditRepo) list(ctx context.Context, where string, arg any, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.s.db.QueryContext(ctx, `
SELECT id, user_id, username, event_type, outcome, failure_reason, ip_address, user_agent, created_at
FROM auth_audit_logs `+where+`
ORDER BY created_at DESC, rowid DESC
LIMIT ?2`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e                 audit.Event
			uid               sql.NullInt64
			reason, ip, agent sql.NullString
			evType, outcome   string
			created           int64
		)
		if err := rows.Scan(&e.ID, &uid, &e.Username, &evType, &outcome, &reason, &ip, &agent, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if uid.Valid {
			v := uid.Int64
			e.UserID = &v
		}
		e.Type = audit.EventType(evType)
		e.Outcome = audit.Outcome(outcome)
		e.FailureReason = reason.String
		e.IP = ip.String
		e.UserAgent = agent.String
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
