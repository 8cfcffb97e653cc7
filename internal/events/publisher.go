package events

import (
	"context"
	"time"
)

// Publisher delivers ticket lifecycle events to interested services.
// Publication is fire-and-forget: the engine logs failures and moves on.
type Publisher interface {
	Publish(ctx context.Context, subject string, msg []byte) error
}

// TicketEvent is the payload published on each ticket transition.
type TicketEvent struct {
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Area      string    `json:"area"`
	TS        time.Time `json:"ts"`
}

// Nop discards all events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
