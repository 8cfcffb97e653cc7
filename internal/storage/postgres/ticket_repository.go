package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// TicketRepository persists tickets, order lines, history rows and guest
// records, and owns the best-effort stock decrement.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *TicketRepository) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	const query = `
SELECT id, guest_id, room, provider_scope, type, status, priority, issue, notes,
       total_amount, created_at, updated_at
FROM tickets
WHERE id = $1`

	var t domain.Ticket
	err := r.queryRow(ctx, query, id).Scan(
		&t.ID, &t.GuestID, &t.Room, &t.ProviderScope, &t.Type, &t.Status,
		&t.Priority, &t.Issue, &t.Notes, &t.TotalAmount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Items = lines
	return t, nil
}

func (r *TicketRepository) listLines(ctx context.Context, ticketID string) ([]domain.OrderLine, error) {
	const query = `
SELECT item_id, name, qty, unit_price, provider_id, category
FROM ticket_items
WHERE ticket_id = $1
ORDER BY item_id`

	rows, err := r.query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list ticket items: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ItemID, &l.Name, &l.Qty, &l.UnitPrice, &l.ProviderID, &l.Category); err != nil {
			return nil, fmt.Errorf("scan ticket item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ticket items: %w", err)
	}
	return lines, nil
}

func (r *TicketRepository) GetHistory(ctx context.Context, requestID string) ([]domain.HistoryEntry, error) {
	const query = `
SELECT request_id, status, actor, note, ts
FROM ticket_history
WHERE request_id = $1
ORDER BY id`

	rows, err := r.query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.RequestID, &h.Status, &h.Actor, &h.Note, &h.TS); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (r *TicketRepository) CreateTicket(ctx context.Context, t domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, guest_id, room, provider_scope, type, status, priority,
                     issue, notes, total_amount, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.exec(ctx, stmt,
		t.ID, t.GuestID, t.Room, t.ProviderScope, t.Type, t.Status, t.Priority,
		t.Issue, t.Notes, t.TotalAmount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ticket id collision: %w", err)
		}
		return fmt.Errorf("create ticket: %w", err)
	}

	const lineStmt = `
INSERT INTO ticket_items (ticket_id, item_id, name, qty, unit_price, provider_id, category)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, line := range t.Items {
		if _, err := r.exec(ctx, lineStmt,
			t.ID, line.ItemID, line.Name, line.Qty, line.UnitPrice, line.ProviderID, line.Category,
		); err != nil {
			return fmt.Errorf("create ticket item: %w", err)
		}
	}
	return nil
}

func (r *TicketRepository) UpdateTicketStatus(ctx context.Context, id string, status domain.TicketStatus, at time.Time) error {
	const stmt = `UPDATE tickets SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, status, at)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) UpdateTicketPriority(ctx context.Context, id string, p domain.Priority, at time.Time) error {
	const stmt = `UPDATE tickets SET priority = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.exec(ctx, stmt, id, p, at)
	if err != nil {
		return fmt.Errorf("update ticket priority: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) AppendHistory(ctx context.Context, h domain.HistoryEntry) error {
	const stmt = `
INSERT INTO ticket_history (request_id, status, actor, note, ts)
VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.exec(ctx, stmt, h.RequestID, h.Status, h.Actor, h.Note, h.TS); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// UpsertGuest seeds the guest row on first contact; an existing row keeps
// its budget counter untouched (only the room is refreshed).
func (r *TicketRepository) UpsertGuest(ctx context.Context, g domain.Guest) error {
	const stmt = `
INSERT INTO guests (id, room, spend_limit, daily_spend, vip)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET room = EXCLUDED.room`

	if _, err := r.exec(ctx, stmt, g.ID, g.Room, g.SpendLimit, g.DailySpend, g.VIP); err != nil {
		return fmt.Errorf("upsert guest: %w", err)
	}
	return nil
}

// DecrementStock lowers an item's stock, floored at zero. Best-effort: two
// concurrent orders for the last unit may both pass the resolver's snapshot
// check, which is accepted.
func (r *TicketRepository) DecrementStock(ctx context.Context, providerID, itemID string, qty int) error {
	const stmt = `
UPDATE menu_items
SET stock_current = GREATEST(stock_current - $3, 0)
WHERE provider_id = $1 AND item_id = $2`

	tag, err := r.exec(ctx, stmt, providerID, itemID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ItemError{Item: itemID, Err: domain.ErrItemNotFound}
	}
	return nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
