package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product's sales record extracted from a feed, before it is
// persisted.
type LineItem struct {
	ExternalProductID string
	Name              string
	Quantity          int
	UnitPrice         decimal.Decimal
	Category          string
	SalesDate         string // YYYY-MM-DD, equals the feed date
}

// Revenue is quantity * unit price, exact decimal.
func (li LineItem) Revenue() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SalesSummary holds the aggregates derived from one feed.
type SalesSummary struct {
	Date         string
	TotalRevenue decimal.Decimal
	TopItems     []LineItem // up to 3, by quantity descending, feed order on ties
	Categories   []string   // distinct, first-seen order
}

// AnalysisReport is the persisted parent entity: the LLM narrative for one
// feed date plus its line items.
type AnalysisReport struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Report    string    `json:"analysis_report"`
	CreatedAt time.Time `json:"created_at"`
	Products  []Product `json:"products,omitempty"`
}

// Product is the persisted child entity of an AnalysisReport.
type Product struct {
	ID                int64           `json:"id"`
	ExternalProductID string          `json:"product_id"`
	Name              string          `json:"name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"price"`
	Category          string          `json:"category"`
	SalesDate         string          `json:"sales_date"`
	AnalysisID        int64           `json:"-"`
}
