// Package book selects executable prices from raw depth levels. Thin
// top-of-book levels are not realistically fillable and would cause
// false reprice churn, so every lookup filters by minimum notional.
package book

import (
	"sort"

	"github.com/mkarpov/opinion-mm/pkg/types"
)

// DefaultMinNotional is the minimum level value, in collateral currency,
// for a price to count as executable.
const DefaultMinNotional = 5.0

// BestBid returns the highest bid whose notional meets minNotional.
// Levels are re-sorted defensively; the venue usually returns bids in
// descending price order but does not guarantee it.
func BestBid(levels []types.PriceLevel, minNotional float64) (types.PriceLevel, bool) {
	sorted := make([]types.PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Price > sorted[j].Price
	})

	return firstExecutable(sorted, minNotional)
}

// BestAsk returns the lowest ask whose notional meets minNotional.
func BestAsk(levels []types.PriceLevel, minNotional float64) (types.PriceLevel, bool) {
	sorted := make([]types.PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})

	return firstExecutable(sorted, minNotional)
}

func firstExecutable(sorted []types.PriceLevel, minNotional float64) (types.PriceLevel, bool) {
	for _, level := range sorted {
		if level.Notional() >= minNotional {
			return level, true
		}
	}
	return types.PriceLevel{}, false
}

// TopLevels returns up to n levels sorted for display: bids descending
// when descending is true, asks ascending otherwise.
func TopLevels(levels []types.PriceLevel, n int, descending bool) []types.PriceLevel {
	sorted := make([]types.PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Price > sorted[j].Price
		}
		return sorted[i].Price < sorted[j].Price
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
