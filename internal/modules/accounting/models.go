package accounting

import (
	"github.com/shopspring/decimal"
)

// Position is the current holding in one stock: quantity held and its
// cost-weighted average price. At most one open position exists per stock;
// the row is deleted outright when quantity reaches zero.
type Position struct {
	ID        int64           `json:"id"`
	StockID   int64           `json:"stock_id"`
	Quantity  int64           `json:"quantity"`
	AvgCost   decimal.Decimal `json:"average"`
	CreatedAt string          `json:"created_at"` // RFC3339
}

// Holding is one row of the holdings report. AvgBuy is the arithmetic mean
// of BUY-entry rates for the stock, nil when no BUY entries exist (e.g. a
// position created through data migration).
type Holding struct {
	Name     string   `json:"name"`
	Quantity int64    `json:"quantity"`
	AvgBuy   *float64 `json:"avgbuy"`
}

// PortfolioEntry is one ledger entry shaped for the portfolio history
// report, grouped by stock in entry-creation order.
type PortfolioEntry struct {
	Name     string  `json:"name"`
	Side     string  `json:"type"`
	Quantity int64   `json:"quantity"`
	Rate     float64 `json:"price"`
	Date     string  `json:"date"`
}

// Snapshot is one dated mark-to-market valuation of the whole book,
// written by the scheduled valuation job.
type Snapshot struct {
	ID            int64           `json:"id"`
	Date          string          `json:"date"` // YYYY-MM-DD
	TotalValue    decimal.Decimal `json:"total_value"`
	PositionCount int             `json:"position_count"`
	CreatedAt     string          `json:"created_at"`
}
