package domain

import "time"

type LedgerDomain string

const (
	LedgerDomainOrder       LedgerDomain = "order"
	LedgerDomainMaintenance LedgerDomain = "maintenance"
)

// LedgerEntry is an immutable record of one successful charge against a
// guest's budget. (guest_id, request_id) is unique: a retried charge for the
// same request never produces a second row.
type LedgerEntry struct {
	ID         string
	Domain     LedgerDomain
	RequestID  string
	GuestID    string
	Amount     float64
	OccurredAt time.Time
}
