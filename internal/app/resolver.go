package app

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

// CatalogReader is the read-only view over menu rows the resolver and the
// cross-sell selector need.
type CatalogReader interface {
	ListItems(ctx context.Context) ([]domain.MenuItem, error)
}

// RequestedItem is one raw order line as supplied by the caller. Prices are
// never accepted from callers; only the id/name and quantity matter.
type RequestedItem struct {
	ItemID string
	Name   string
	Qty    int
}

type Resolution struct {
	Lines []domain.OrderLine
	Total float64
}

// Resolver turns requested item names/ids into priced catalog lines.
type Resolver struct {
	catalog CatalogReader
}

func NewResolver(catalog CatalogReader) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve matches every requested item against the catalog and validates
// active flag, availability window and stock. Matching is by item id when
// present, otherwise by normalized name, exact match only. Quantities are
// floored at 1. The returned total is computed from catalog prices.
func (r *Resolver) Resolve(ctx context.Context, items []RequestedItem, at time.Time, stockCheck bool) (Resolution, error) {
	catalog, err := r.catalog.ListItems(ctx)
	if err != nil {
		return Resolution{}, err
	}

	byID := make(map[string]domain.MenuItem, len(catalog))
	byName := make(map[string]domain.MenuItem, len(catalog))
	for _, item := range catalog {
		byID[item.ItemID] = item
		byName[NormalizeName(item.Name)] = item
	}

	var res Resolution
	for _, req := range items {
		item, ok := lookupItem(byID, byName, req)
		if !ok {
			return Resolution{}, &domain.ItemError{Item: requestedLabel(req), Err: domain.ErrItemNotFound}
		}
		if !item.IsActive {
			return Resolution{}, &domain.ItemError{Item: item.Name, Err: domain.ErrItemInactive}
		}
		if !item.InWindow(at) {
			return Resolution{}, &domain.ItemError{Item: item.Name, Err: domain.ErrItemOutOfWindow}
		}
		if stockCheck && !item.HasStock() {
			return Resolution{}, &domain.ItemError{Item: item.Name, Err: domain.ErrInsufficientStock}
		}

		qty := req.Qty
		if qty < 1 {
			qty = 1
		}

		res.Lines = append(res.Lines, domain.OrderLine{
			ItemID:     item.ItemID,
			Name:       item.Name,
			Qty:        qty,
			UnitPrice:  item.Price,
			ProviderID: item.ProviderID,
			Category:   item.Category,
		})
		res.Total += item.Price * float64(qty)
	}
	return res, nil
}

func lookupItem(byID, byName map[string]domain.MenuItem, req RequestedItem) (domain.MenuItem, bool) {
	if req.ItemID != "" {
		item, ok := byID[req.ItemID]
		return item, ok
	}
	item, ok := byName[NormalizeName(req.Name)]
	return item, ok
}

func requestedLabel(req RequestedItem) string {
	if req.Name != "" {
		return req.Name
	}
	return req.ItemID
}

// NormalizeName lowercases, strips diacritics and collapses whitespace so
// "Pizza  Margarita" and "pizza margaríta" compare equal. Exact match only;
// no fuzzy matching happens anywhere.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		r = foldRune(r)
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

var runeFolds = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a', 'ã': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c',
}

func foldRune(r rune) rune {
	if folded, ok := runeFolds[r]; ok {
		return folded
	}
	return r
}
