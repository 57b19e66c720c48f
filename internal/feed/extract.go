package feed

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/almazgeobur/sales-analyzer/internal/model"
)

// Extract walks a parsed feed in document order and produces the line items
// plus the exact-decimal total revenue. The first non-parseable numeric field
// aborts extraction; no partial result is returned.
func Extract(doc *Document) ([]model.LineItem, decimal.Decimal, error) {
	items := make([]model.LineItem, 0, len(doc.Products))
	total := decimal.Zero

	for i, p := range doc.Products {
		quantity, err := strconv.Atoi(p.Quantity)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("extract product %d: bad quantity %q: %w", i, p.Quantity, err)
		}
		if quantity < 0 {
			return nil, decimal.Zero, fmt.Errorf("extract product %d: negative quantity %d", i, quantity)
		}

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("extract product %d: bad price %q: %w", i, p.Price, err)
		}
		if price.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("extract product %d: negative price %s", i, p.Price)
		}

		item := model.LineItem{
			ExternalProductID: p.ID,
			Name:              p.Name,
			Quantity:          quantity,
			UnitPrice:         price,
			Category:          p.Category,
			SalesDate:         doc.Date,
		}
		total = total.Add(item.Revenue())
		items = append(items, item)
	}

	return items, total, nil
}
