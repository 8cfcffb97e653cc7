package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/storage/postgres"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/testutil"
)

func TestLedgerRepository_InsertEntry_Idempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	testutil.InsertGuest(t, ctx, pool, domain.Guest{ID: "g-1", Room: "501", SpendLimit: 100})
	repo := postgres.NewLedgerRepository(pool)

	entry := domain.LedgerEntry{
		ID:         uuid.NewString(),
		Domain:     domain.LedgerDomainOrder,
		RequestID:  "REQ-1",
		GuestID:    "g-1",
		Amount:     18.50,
		OccurredAt: time.Now().UTC(),
	}

	inserted, err := repo.InsertEntry(ctx, entry)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report a new row")
	}

	entry.ID = uuid.NewString()
	inserted, err = repo.InsertEntry(ctx, entry)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate insert to be ignored")
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE guest_id = 'g-1' AND request_id = 'REQ-1'`).Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one entry, got %d", count)
	}
}

func TestLedgerRepository_DecrementSpendLimit(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	testutil.InsertGuest(t, ctx, pool, domain.Guest{ID: "g-1", Room: "501", SpendLimit: 50})
	repo := postgres.NewLedgerRepository(pool)

	if err := repo.DecrementSpendLimit(ctx, "g-1", 18.50); err != nil {
		t.Fatalf("decrement within budget: %v", err)
	}

	var remaining float64
	if err := pool.QueryRow(ctx, `SELECT spend_limit FROM guests WHERE id = 'g-1'`).Scan(&remaining); err != nil {
		t.Fatalf("read budget: %v", err)
	}
	if remaining != 31.50 {
		t.Fatalf("expected remaining budget 31.50, got %.2f", remaining)
	}

	err := repo.DecrementSpendLimit(ctx, "g-1", 40)
	if !errors.Is(err, domain.ErrSpendLimitExceeded) {
		t.Fatalf("expected ErrSpendLimitExceeded, got %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT spend_limit FROM guests WHERE id = 'g-1'`).Scan(&remaining); err != nil {
		t.Fatalf("read budget: %v", err)
	}
	if remaining != 31.50 {
		t.Fatalf("expected budget untouched after refusal, got %.2f", remaining)
	}

	err = repo.DecrementSpendLimit(ctx, "g-404", 1)
	if !errors.Is(err, domain.ErrGuestNotFound) {
		t.Fatalf("expected ErrGuestNotFound, got %v", err)
	}
}

func TestLedgerRepository_DeleteEntry_Compensation(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	testutil.InsertGuest(t, ctx, pool, domain.Guest{ID: "g-1", Room: "501", SpendLimit: 100})
	repo := postgres.NewLedgerRepository(pool)

	entry := domain.LedgerEntry{
		ID:         uuid.NewString(),
		Domain:     domain.LedgerDomainOrder,
		RequestID:  "REQ-1",
		GuestID:    "g-1",
		Amount:     18.50,
		OccurredAt: time.Now().UTC(),
	}
	if _, err := repo.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.DeleteEntry(ctx, "g-1", "REQ-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ledger after compensation, got %d rows", count)
	}

	// After compensation a retry must be able to insert again.
	entry.ID = uuid.NewString()
	inserted, err := repo.InsertEntry(ctx, entry)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if !inserted {
		t.Fatal("expected reinsert after compensation to succeed")
	}
}
