package ledger

import (
	"fmt"
	"strings"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/shopspring/decimal"
)

// Side represents the trade direction (BUY or SELL)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsValid checks if the trade side is valid
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// IsBuy returns true if this is a BUY trade
func (s Side) IsBuy() bool {
	return s == SideBuy
}

// IsSell returns true if this is a SELL trade
func (s Side) IsSell() bool {
	return s == SideSell
}

// SideFromString creates a Side from a string (case-insensitive)
func SideFromString(value string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side %q: %w", value, domain.ErrInvalidArgument)
	}
}

// Entry is one immutable trade record: open, increase, decrease or close of
// a position, at a given rate and quantity. Entries are append-only; nothing
// ever updates or deletes them (audit trail).
type Entry struct {
	ID        int64           `json:"id"`
	StockID   int64           `json:"stock_id"`
	Side      Side            `json:"side"`
	Rate      decimal.Decimal `json:"rate"`
	Quantity  int64           `json:"quantity"`
	CreatedAt string          `json:"created_at"` // RFC3339
}

// Validate checks entry fields before persistence
func (e *Entry) Validate() error {
	if e.StockID <= 0 {
		return fmt.Errorf("stock id is required: %w", domain.ErrInvalidArgument)
	}
	if !e.Side.IsValid() {
		return fmt.Errorf("invalid trade side %q: %w", e.Side, domain.ErrInvalidArgument)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	if e.Rate.IsNegative() {
		return fmt.Errorf("rate must be non-negative: %w", domain.ErrInvalidArgument)
	}
	return nil
}
