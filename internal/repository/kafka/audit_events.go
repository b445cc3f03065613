package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/NordCoder/Gatehouse/internal/domain/audit"
)

const DefaultAuditTopic = "gatehouse.auth.audit"

type publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// AuditEvents publishes serialized audit events. Messages for one account
// share a key and therefore a partition.
type AuditEvents struct {
	p publisher
}

func NewAuditEvents(p publisher) *AuditEvents { return &AuditEvents{p: p} }

// PublishRaw forwards an already encoded event, as stored in the outbox.
func (a *AuditEvents) PublishRaw(ctx context.Context, data []byte) error {
	var e audit.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("decode audit event: %w", err)
	}
	return a.p.Publish(ctx, auditKey(e), data)
}

func (a *AuditEvents) Publish(ctx context.Context, e audit.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return a.p.Publish(ctx, auditKey(e), data)
}

func auditKey(e audit.Event) []byte {
	if e.UserID != nil {
		return []byte(strconv.FormatInt(*e.UserID, 10))
	}
	return []byte(e.Username)
}
