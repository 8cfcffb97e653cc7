package app

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/domain"
)

const maxSuggestionsPerCategory = 3

type Suggestion struct {
	ProviderID string
	ItemID     string
	Name       string
	Price      float64
	Category   domain.Category
}

type SuggestOptions struct {
	Now            time.Time
	PerCategory    int
	PreferProvider string
	ExplicitType   domain.TicketType
	// ForbidSameCategory is accepted for contract parity with callers; the
	// selector already never targets a represented category, so the flag
	// does not change the outcome.
	ForbidSameCategory bool
	StockCheck         bool
}

// CrossSell proposes supplementary items from categories not represented in
// the chosen lines. Selection is intentionally randomized for variety.
type CrossSell struct {
	catalog CatalogReader
	rng     *rand.Rand
}

func NewCrossSell(catalog CatalogReader, rng *rand.Rand) *CrossSell {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CrossSell{catalog: catalog, rng: rng}
}

// Suggest returns up to min(3, opts.PerCategory) sellable items per target
// category. Target categories are those not already represented by chosen
// lines (an explicit food/beverage type counts as represented even without a
// matching line). Output follows the fixed category order; within a
// category, candidates are shuffled and then stably reordered so providers
// other than PreferProvider come first.
func (c *CrossSell) Suggest(ctx context.Context, chosen []domain.OrderLine, opts SuggestOptions) ([]Suggestion, error) {
	catalog, err := c.catalog.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	represented := make(map[domain.Category]bool)
	chosenIDs := make(map[string]bool, len(chosen))
	chosenNames := make(map[string]bool, len(chosen))
	for _, line := range chosen {
		represented[line.Category] = true
		chosenIDs[line.ItemID] = true
		chosenNames[NormalizeName(line.Name)] = true
	}
	switch opts.ExplicitType {
	case domain.TypeFood:
		represented[domain.CategoryFood] = true
	case domain.TypeBeverage:
		represented[domain.CategoryBeverage] = true
	}

	perCategory := opts.PerCategory
	if perCategory > maxSuggestionsPerCategory {
		perCategory = maxSuggestionsPerCategory
	}
	if perCategory <= 0 {
		return nil, nil
	}

	var out []Suggestion
	for _, category := range domain.Categories {
		if represented[category] {
			continue
		}

		var candidates []domain.MenuItem
		for _, item := range catalog {
			if item.Category != category {
				continue
			}
			if !item.Sellable(opts.Now, opts.StockCheck) {
				continue
			}
			if chosenIDs[item.ItemID] || chosenNames[NormalizeName(item.Name)] {
				continue
			}
			candidates = append(candidates, item)
		}

		c.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		if opts.PreferProvider != "" {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].ProviderID != opts.PreferProvider &&
					candidates[j].ProviderID == opts.PreferProvider
			})
		}

		for i, item := range candidates {
			if i >= perCategory {
				break
			}
			out = append(out, Suggestion{
				ProviderID: item.ProviderID,
				ItemID:     item.ItemID,
				Name:       item.Name,
				Price:      item.Price,
				Category:   item.Category,
			})
		}
	}
	return out, nil
}
