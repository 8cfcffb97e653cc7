package postgres_test

import (
	"context"
	"testing"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/storage/postgres"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/testutil"
)

func TestCatalogRepository_ListItems(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	items := []domain.MenuItem{
		{
			ProviderID: "rest-2", ItemID: "itm-2", Name: "Limonada",
			Price: 4.00, Category: domain.CategoryBeverage,
			AvailableStart: "00:00", AvailableEnd: "23:59",
			StockCurrent: 10, StockMinimum: 2, IsActive: true,
		},
		{
			ProviderID: "rest-1", ItemID: "itm-1", Name: "Pizza Margarita",
			Price: 18.50, Category: domain.CategoryFood,
			AvailableStart: "07:00", AvailableEnd: "23:00",
			StockCurrent: 5, StockMinimum: 1, IsActive: false,
		},
	}
	for _, item := range items {
		testutil.InsertMenuItem(t, ctx, pool, item)
	}

	repo := postgres.NewCatalogRepository(pool)
	got, err := repo.ListItems(ctx)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	// Ordered by provider then item id, inactive items included.
	if got[0].ItemID != "itm-1" || got[1].ItemID != "itm-2" {
		t.Fatalf("unexpected order: %s, %s", got[0].ItemID, got[1].ItemID)
	}
	if got[0].IsActive {
		t.Fatal("expected inactive flag preserved")
	}
	if got[0].Price != 18.50 || got[0].Category != domain.CategoryFood {
		t.Fatalf("unexpected item %+v", got[0])
	}
}
