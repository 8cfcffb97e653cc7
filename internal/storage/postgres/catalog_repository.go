package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// CatalogRepository is the read-only view over per-provider menu rows.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListItems(ctx context.Context) ([]domain.MenuItem, error) {
	const query = `
SELECT provider_id, item_id, name, price, category, available_start, available_end,
       stock_current, stock_minimum, is_active
FROM menu_items
ORDER BY provider_id, item_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		var m domain.MenuItem
		if err := rows.Scan(
			&m.ProviderID, &m.ItemID, &m.Name, &m.Price, &m.Category,
			&m.AvailableStart, &m.AvailableEnd,
			&m.StockCurrent, &m.StockMinimum, &m.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}
