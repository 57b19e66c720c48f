package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/almazgeobur/sales-analyzer/internal/model"
)

const topItemCount = 3

// Summarize derives the aggregates for one feed: the top items by quantity
// and the distinct category set. A pure function; an empty item list yields
// empty aggregates.
func Summarize(items []model.LineItem, totalRevenue decimal.Decimal, date string) model.SalesSummary {
	sorted := make([]model.LineItem, len(items))
	copy(sorted, items)
	// Stable: ties keep feed order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quantity > sorted[j].Quantity
	})

	n := topItemCount
	if len(sorted) < n {
		n = len(sorted)
	}
	topItems := sorted[:n]

	seen := make(map[string]struct{}, len(items))
	categories := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}

	return model.SalesSummary{
		Date:         date,
		TotalRevenue: totalRevenue,
		TopItems:     topItems,
		Categories:   categories,
	}
}
