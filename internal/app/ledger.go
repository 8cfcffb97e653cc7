package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/clock"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// LedgerStore is the storage contract for charges. InsertEntry must have
// insert-if-absent semantics on (guest_id, request_id) and report whether a
// row was actually written. DecrementSpendLimit must be a single atomic
// conditional update: it fails with domain.ErrSpendLimitExceeded when the
// remaining budget is below the amount, without a read-then-write race.
type LedgerStore interface {
	InsertEntry(ctx context.Context, entry domain.LedgerEntry) (bool, error)
	DeleteEntry(ctx context.Context, guestID, requestID string) error
	DecrementSpendLimit(ctx context.Context, guestID string, amount float64) error
}

// Ledger records charges against guest budgets. Charges are idempotent per
// (guest, request): a retry after success is a no-op, a retry after a
// spend-limit failure may legitimately succeed once the budget is topped up.
type Ledger struct {
	store  LedgerStore
	clock  clock.Clock
	logger *log.Logger
}

func NewLedger(store LedgerStore, clk clock.Clock, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{store: store, clock: clk, logger: logger}
}

// Charge applies a two-phase charge:
//  1. insert the ledger entry, ignoring the insert when an entry for
//     (guest, request) already exists;
//  2. atomically decrement the guest's remaining budget.
//
// When step 2 fails the entry from step 1 is deleted again so the ledger
// only ever records successful charges. A failed compensating delete is
// logged but never masks the spend-limit error.
func (l *Ledger) Charge(ctx context.Context, guestID, requestID string, amount float64, d domain.LedgerDomain) error {
	if amount <= 0 {
		return nil
	}

	inserted, err := l.store.InsertEntry(ctx, domain.LedgerEntry{
		ID:         uuid.NewString(),
		Domain:     d,
		RequestID:  requestID,
		GuestID:    guestID,
		Amount:     amount,
		OccurredAt: l.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	if !inserted {
		// Entry already present means the charge previously succeeded
		// (failed charges are compensated away), so the retry is done.
		return nil
	}

	if err := l.store.DecrementSpendLimit(ctx, guestID, amount); err != nil {
		if delErr := l.store.DeleteEntry(ctx, guestID, requestID); delErr != nil {
			l.logger.Printf("ERROR: compensating ledger delete failed guest=%s request=%s: %v", guestID, requestID, delErr)
		}
		if errors.Is(err, domain.ErrSpendLimitExceeded) {
			return domain.ErrSpendLimitExceeded
		}
		return fmt.Errorf("decrement spend limit: %w", err)
	}
	return nil
}
