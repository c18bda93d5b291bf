package accounting

import (
	"fmt"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/aristath/tradebook/internal/events"
	"github.com/aristath/tradebook/internal/locking"
	"github.com/aristath/tradebook/internal/modules/ledger"
	"github.com/aristath/tradebook/internal/modules/quotes"
	"github.com/aristath/tradebook/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service orchestrates trades and the read-side aggregates. It is the only
// component that calls ledger.Append and position mutators together, and it
// holds the per-stock lock across the whole read → append → write sequence
// so concurrent trades on one stock cannot lose updates.
//
// Ordering is deliberate: the ledger entry is written before the position
// amend, and it stands even when the amend then fails validation (e.g. an
// over-sell). The ledger records attempted trades, not just applied ones.
type Service struct {
	quotes    *quotes.Repository
	ledger    *ledger.Repository
	positions *PositionRepository
	snapshots *SnapshotRepository
	locks     *locking.Manager
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new accounting service
func NewService(
	quoteRepo *quotes.Repository,
	ledgerRepo *ledger.Repository,
	positionRepo *PositionRepository,
	snapshotRepo *SnapshotRepository,
	lockManager *locking.Manager,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		quotes:    quoteRepo,
		ledger:    ledgerRepo,
		positions: positionRepo,
		snapshots: snapshotRepo,
		locks:     lockManager,
		events:    eventManager,
		log:       log.With().Str("service", "accounting").Logger(),
	}
}

// AddTrade opens a position for a stock at its current quoted price. It
// only ever opens: a stock that already has an open position fails with
// ErrConflict, and subsequent trades go through ModifyTrade.
func (s *Service) AddTrade(stockID int64, quantity int64, side ledger.Side) (Position, error) {
	if quantity <= 0 {
		return Position{}, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	if !side.IsValid() {
		return Position{}, fmt.Errorf("invalid trade side %q: %w", side, domain.ErrInvalidArgument)
	}

	stock, err := s.quotes.GetByID(stockID)
	if err != nil {
		return Position{}, err
	}

	unlock := s.locks.Lock(stock.ID)
	defer unlock()

	if _, err := s.positions.GetByStock(stock.ID); err == nil {
		return Position{}, fmt.Errorf("stock %d: %w", stock.ID, domain.ErrConflict)
	}

	entry, err := s.ledger.Append(stock.ID, side, stock.Price, quantity)
	if err != nil {
		// No ledger entry, no position: the trade never happened
		return Position{}, err
	}

	pos, err := s.positions.Open(stock.ID, quantity, stock.Price)
	if err != nil {
		// The appended entry stands; partial completion is surfaced, not hidden
		s.log.Error().Err(err).
			Int64("stock_id", stock.ID).
			Int64("ledger_entry", entry.ID).
			Msg("Position open failed after ledger append")
		return Position{}, err
	}

	s.events.Emit(events.TradeExecuted, "accounting", map[string]interface{}{
		"stock_id": stock.ID,
		"side":     string(side),
		"quantity": quantity,
		"rate":     stock.Price.InexactFloat64(),
	})
	s.events.Emit(events.PositionOpened, "accounting", map[string]interface{}{
		"position_id": pos.ID,
		"stock_id":    stock.ID,
	})

	return pos, nil
}

// ModifyTrade applies a BUY or SELL of the given quantity to an existing
// position, at the stock's current quoted price.
func (s *Service) ModifyTrade(positionID int64, quantity int64, side ledger.Side) (Position, error) {
	if quantity <= 0 {
		return Position{}, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	if !side.IsValid() {
		return Position{}, fmt.Errorf("invalid trade side %q: %w", side, domain.ErrInvalidArgument)
	}

	pos, err := s.positions.Get(positionID)
	if err != nil {
		return Position{}, err
	}

	unlock := s.locks.Lock(pos.StockID)
	defer unlock()

	// Re-read under the lock; a concurrent trade may have closed the position
	pos, err = s.positions.Get(positionID)
	if err != nil {
		return Position{}, err
	}

	stock, err := s.quotes.GetByID(pos.StockID)
	if err != nil {
		return Position{}, err
	}

	if _, err := s.ledger.Append(stock.ID, side, stock.Price, quantity); err != nil {
		return Position{}, err
	}

	updated, closed, err := s.positions.Amend(positionID, quantity, side, stock.Price)
	if err != nil {
		// ErrInsufficientPosition propagates with the ledger entry left
		// standing: the attempt is part of the audit trail
		return Position{}, err
	}

	s.events.Emit(events.TradeExecuted, "accounting", map[string]interface{}{
		"stock_id": stock.ID,
		"side":     string(side),
		"quantity": quantity,
		"rate":     stock.Price.InexactFloat64(),
	})
	if closed {
		s.events.Emit(events.PositionClosed, "accounting", map[string]interface{}{
			"position_id": positionID,
			"stock_id":    stock.ID,
		})
	}

	return updated, nil
}

// DeleteTrade sells the given quantity out of a position. Selling exactly
// the held quantity removes the position; selling more fails with
// ErrInsufficientPosition after the attempt has been recorded.
func (s *Service) DeleteTrade(positionID int64, quantity int64) (Position, error) {
	return s.ModifyTrade(positionID, quantity, ledger.SideSell)
}

// Holdings reports every open position with the mean rate of its BUY
// entries. AvgBuy is nil for positions whose stock has no BUY entries.
func (s *Service) Holdings() ([]Holding, error) {
	positions, err := s.positions.GetAll()
	if err != nil {
		return nil, err
	}

	holdings := make([]Holding, 0, len(positions))
	for _, pos := range positions {
		stock, err := s.quotes.GetByID(pos.StockID)
		if err != nil {
			return nil, fmt.Errorf("stock for position %d: %w", pos.ID, err)
		}

		buys, err := s.ledger.FindByStock(pos.StockID, ledger.SideBuy)
		if err != nil {
			return nil, err
		}

		h := Holding{Name: stock.Name, Quantity: pos.Quantity}
		if len(buys) > 0 {
			rates := make([]float64, len(buys))
			for i, b := range buys {
				rates[i] = b.Rate.InexactFloat64()
			}
			avg := formulas.Mean(rates)
			h.AvgBuy = &avg
		}
		holdings = append(holdings, h)
	}

	return holdings, nil
}

// PortfolioHistory returns every ledger entry of every stock with an open
// position, grouped by stock in entry-creation order.
func (s *Service) PortfolioHistory() ([]PortfolioEntry, error) {
	stocks, err := s.quotes.GetAll()
	if err != nil {
		return nil, err
	}

	history := make([]PortfolioEntry, 0)
	for _, stock := range stocks {
		if _, err := s.positions.GetByStock(stock.ID); err != nil {
			continue // no open position, stock is skipped entirely
		}

		entries, err := s.ledger.FindByStock(stock.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			history = append(history, PortfolioEntry{
				Name:     stock.Name,
				Side:     string(e.Side),
				Quantity: e.Quantity,
				Rate:     e.Rate.InexactFloat64(),
				Date:     e.CreatedAt,
			})
		}
	}

	return history, nil
}

// CumulativeReturn is the mark-to-market value of the whole book:
// Σ position.quantity × stock.currentPrice. It deliberately values against
// the live quote rather than cost basis.
func (s *Service) CumulativeReturn() (decimal.Decimal, error) {
	positions, err := s.positions.GetAll()
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, pos := range positions {
		stock, err := s.quotes.GetByID(pos.StockID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("stock for position %d: %w", pos.ID, err)
		}
		total = total.Add(stock.Price.Mul(decimal.NewFromInt(pos.Quantity)))
	}

	return total, nil
}

// TakeSnapshot values the book and persists a dated snapshot row. Called
// by the scheduled valuation job; running it twice on one day overwrites
// that day's row.
func (s *Service) TakeSnapshot() (Snapshot, error) {
	total, err := s.CumulativeReturn()
	if err != nil {
		return Snapshot{}, err
	}

	positions, err := s.positions.GetAll()
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := s.snapshots.Save(total, len(positions))
	if err != nil {
		return Snapshot{}, err
	}

	s.events.Emit(events.SnapshotTaken, "accounting", map[string]interface{}{
		"date":           snap.Date,
		"total_value":    total.InexactFloat64(),
		"position_count": snap.PositionCount,
	})

	return snap, nil
}
