package quotes

import (
	"strings"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/shopspring/decimal"
)

// Stock represents a tradable instrument with its current reference price.
// Prices are decimals end to end; JSON responses convert at the handler.
type Stock struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt string          `json:"created_at"` // RFC3339
}

// Validate checks stock fields and normalizes the name
func (s *Stock) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return domain.ErrInvalidArgument
	}
	if s.Price.IsNegative() {
		return domain.ErrInvalidArgument
	}
	return nil
}
