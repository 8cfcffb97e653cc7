package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Category string

const (
	CategoryFood     Category = "food"
	CategoryBeverage Category = "beverage"
	CategoryDessert  Category = "dessert"
)

// Categories lists all menu categories in their fixed iteration order.
var Categories = []Category{CategoryFood, CategoryBeverage, CategoryDessert}

// MenuItem is one per-provider catalog row. Availability windows are
// times of day ("HH:MM") and may wrap midnight.
type MenuItem struct {
	ProviderID     string
	ItemID         string
	Name           string
	Price          float64
	Category       Category
	AvailableStart string
	AvailableEnd   string
	StockCurrent   int
	StockMinimum   int
	IsActive       bool
}

// InWindow reports whether now's time of day falls inside the item's
// availability window.
func (m MenuItem) InWindow(now time.Time) bool {
	return WindowContains(now, m.AvailableStart, m.AvailableEnd)
}

// WindowContains reports whether now's time of day falls inside
// [start, end]. A start later than the end means the window wraps midnight.
// Malformed windows are treated as always open.
func WindowContains(now time.Time, startHHMM, endHHMM string) bool {
	start, err := minutesOfDay(startHHMM)
	if err != nil {
		return true
	}
	end, err := minutesOfDay(endHHMM)
	if err != nil {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur <= end
	}
	return cur >= start || cur <= end
}

// HasStock reports whether the item is above its stock floor.
func (m MenuItem) HasStock() bool {
	return m.StockCurrent > m.StockMinimum
}

// Sellable reports whether the item can be ordered right now.
func (m MenuItem) Sellable(now time.Time, stockCheck bool) bool {
	if !m.IsActive || !m.InWindow(now) {
		return false
	}
	return !stockCheck || m.HasStock()
}

func minutesOfDay(hhmm string) (int, error) {
	h, mm, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("malformed time of day %q", hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("malformed hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("malformed minute in %q", hhmm)
	}
	return hour*60 + minute, nil
}

// OrderLine is one resolved, immutable line of an order. Unit prices come
// from the catalog, never from the caller.
type OrderLine struct {
	ItemID     string
	Name       string
	Qty        int
	UnitPrice  float64
	ProviderID string
	Category   Category
}
