package audit

import (
	"time"
)

type EventType string

const (
	EventLoginSuccess    EventType = "LOGIN_SUCCESS"
	EventLoginFailure    EventType = "LOGIN_FAILURE"
	EventAccountLocked   EventType = "ACCOUNT_LOCKED"
	EventRegistered      EventType = "REGISTERED"
	EventLogout          EventType = "LOGOUT"
	EventPasswordChanged EventType = "PASSWORD_CHANGED"
	EventTokenRefreshed  EventType = "TOKEN_REFRESHED"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Event is a write-once record of an authentication outcome.
type Event struct {
	ID            string    `json:"id"`
	UserID        *int64    `json:"user_id,omitempty"`
	Username      string    `json:"username"`
	Type          EventType `json:"event_type"`
	Outcome       Outcome   `json:"outcome"`
	FailureReason string    `json:"failure_reason,omitempty"`
	IP            string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
