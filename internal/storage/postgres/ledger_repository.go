package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// LedgerRepository stores charges and owns the guest budget counter.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// InsertEntry writes a ledger entry with insert-if-absent semantics on
// (guest_id, request_id) and reports whether a row was actually inserted.
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry domain.LedgerEntry) (bool, error) {
	const stmt = `
INSERT INTO ledger_entries (id, domain, request_id, guest_id, amount, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (guest_id, request_id) DO NOTHING`

	tag, err := r.exec(ctx, stmt,
		entry.ID,
		entry.Domain,
		entry.RequestID,
		entry.GuestID,
		entry.Amount,
		entry.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LedgerRepository) DeleteEntry(ctx context.Context, guestID, requestID string) error {
	const stmt = `DELETE FROM ledger_entries WHERE guest_id = $1 AND request_id = $2`
	if _, err := r.exec(ctx, stmt, guestID, requestID); err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}

// DecrementSpendLimit applies the single atomic conditional update that
// makes concurrent charges against the same guest safe: the decrement only
// happens when the remaining budget covers the amount.
func (r *LedgerRepository) DecrementSpendLimit(ctx context.Context, guestID string, amount float64) error {
	const stmt = `
UPDATE guests
SET spend_limit = spend_limit - $2
WHERE id = $1 AND spend_limit >= $2`

	tag, err := r.exec(ctx, stmt, guestID, amount)
	if err != nil {
		return fmt.Errorf("decrement spend limit: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM guests WHERE id = $1)`, guestID).Scan(&exists); err != nil {
		return fmt.Errorf("check guest: %w", err)
	}
	if !exists {
		return domain.ErrGuestNotFound
	}
	return domain.ErrSpendLimitExceeded
}

func (r *LedgerRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *LedgerRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
