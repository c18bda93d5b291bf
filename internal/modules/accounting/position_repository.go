package accounting

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/aristath/tradebook/internal/modules/ledger"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PositionRepository handles position database operations. All mutations on
// a given position are serialized by the trade service's per-stock lock;
// the repository itself only guarantees single-statement atomicity via
// transactions.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

// Open creates a new position with averageCost equal to the opening price.
// Fails with ErrConflict when the stock already has an open position.
func (r *PositionRepository) Open(stockID int64, quantity int64, price decimal.Decimal) (Position, error) {
	if quantity <= 0 {
		return Position{}, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	if price.IsNegative() {
		return Position{}, fmt.Errorf("price must be non-negative: %w", domain.ErrInvalidArgument)
	}

	pos := Position{
		StockID:   stockID,
		Quantity:  quantity,
		AvgCost:   price,
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	tx, err := r.db.Begin()
	if err != nil {
		return Position{}, fmt.Errorf("failed to begin transaction: %w", domain.ErrPersistence)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRow("SELECT id FROM positions WHERE stock_id = ?", stockID).Scan(&existing)
	if err == nil {
		return Position{}, fmt.Errorf("stock %d: %w", stockID, domain.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Position{}, fmt.Errorf("failed to check existing position: %w", domain.ErrPersistence)
	}

	res, err := tx.Exec(
		"INSERT INTO positions (stock_id, quantity, avg_cost, created_at) VALUES (?, ?, ?, ?)",
		pos.StockID, pos.Quantity, pos.AvgCost.String(), pos.CreatedAt,
	)
	if err != nil {
		return Position{}, fmt.Errorf("failed to insert position: %w", domain.ErrPersistence)
	}
	pos.ID, err = res.LastInsertId()
	if err != nil {
		return Position{}, fmt.Errorf("failed to read position id: %w", domain.ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return Position{}, fmt.Errorf("failed to commit transaction: %w", domain.ErrPersistence)
	}

	r.log.Info().
		Int64("stock_id", stockID).
		Int64("quantity", quantity).
		Str("avg_cost", price.String()).
		Msg("Position opened")

	return pos, nil
}

// Amend applies a BUY or SELL adjustment to a position.
//
// BUY moves the average cost to the volume-weighted mean of the old basis
// and the new lot. SELL leaves the average cost untouched (only remaining
// cost basis is tracked); selling the full quantity deletes the row, and
// selling more than held fails with ErrInsufficientPosition without any
// mutation. The second return value reports whether the position closed.
func (r *PositionRepository) Amend(positionID int64, delta int64, side ledger.Side, tradePrice decimal.Decimal) (Position, bool, error) {
	if delta <= 0 {
		return Position{}, false, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	if !side.IsValid() {
		return Position{}, false, fmt.Errorf("invalid trade side %q: %w", side, domain.ErrInvalidArgument)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to begin transaction: %w", domain.ErrPersistence)
	}
	defer func() { _ = tx.Rollback() }()

	pos, err := scanPosition(tx.QueryRow(
		"SELECT id, stock_id, quantity, avg_cost, created_at FROM positions WHERE id = ?", positionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, false, fmt.Errorf("position %d: %w", positionID, domain.ErrNotFound)
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to load position: %w", err)
	}

	closed := false
	switch {
	case side.IsBuy():
		oldQty := decimal.NewFromInt(pos.Quantity)
		newQty := pos.Quantity + delta
		// (avg*q + price*delta) / (q + delta)
		pos.AvgCost = pos.AvgCost.Mul(oldQty).
			Add(tradePrice.Mul(decimal.NewFromInt(delta))).
			Div(decimal.NewFromInt(newQty))
		pos.Quantity = newQty

		_, err = tx.Exec("UPDATE positions SET quantity = ?, avg_cost = ? WHERE id = ?",
			pos.Quantity, pos.AvgCost.String(), pos.ID)

	case delta > pos.Quantity:
		return Position{}, false, fmt.Errorf("sell %d exceeds held %d: %w",
			delta, pos.Quantity, domain.ErrInsufficientPosition)

	case delta == pos.Quantity:
		// Full close: the row is removed, never left at zero
		pos.Quantity = 0
		closed = true
		_, err = tx.Exec("DELETE FROM positions WHERE id = ?", pos.ID)

	default:
		pos.Quantity -= delta
		_, err = tx.Exec("UPDATE positions SET quantity = ? WHERE id = ?", pos.Quantity, pos.ID)
	}

	if err != nil {
		return Position{}, false, fmt.Errorf("failed to amend position: %w", domain.ErrPersistence)
	}

	if err := tx.Commit(); err != nil {
		return Position{}, false, fmt.Errorf("failed to commit transaction: %w", domain.ErrPersistence)
	}

	r.log.Info().
		Int64("position_id", positionID).
		Str("side", string(side)).
		Int64("delta", delta).
		Int64("quantity", pos.Quantity).
		Bool("closed", closed).
		Msg("Position amended")

	return pos, closed, nil
}

// Get returns a position by id
func (r *PositionRepository) Get(positionID int64) (Position, error) {
	pos, err := scanPosition(r.db.QueryRow(
		"SELECT id, stock_id, quantity, avg_cost, created_at FROM positions WHERE id = ?", positionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, fmt.Errorf("position %d: %w", positionID, domain.ErrNotFound)
	}
	if err != nil {
		return Position{}, fmt.Errorf("failed to get position: %w", err)
	}
	return pos, nil
}

// GetByStock returns the open position for a stock
func (r *PositionRepository) GetByStock(stockID int64) (Position, error) {
	pos, err := scanPosition(r.db.QueryRow(
		"SELECT id, stock_id, quantity, avg_cost, created_at FROM positions WHERE stock_id = ?", stockID))
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, fmt.Errorf("no position for stock %d: %w", stockID, domain.ErrNotFound)
	}
	if err != nil {
		return Position{}, fmt.Errorf("failed to get position: %w", err)
	}
	return pos, nil
}

// GetAll returns all open positions in creation order
func (r *PositionRepository) GetAll() ([]Position, error) {
	rows, err := r.db.Query("SELECT id, stock_id, quantity, avg_cost, created_at FROM positions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", domain.ErrPersistence)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (Position, error) {
	var pos Position
	var avgCost string

	if err := row.Scan(&pos.ID, &pos.StockID, &pos.Quantity, &avgCost, &pos.CreatedAt); err != nil {
		return Position{}, err
	}

	parsed, err := decimal.NewFromString(avgCost)
	if err != nil {
		return Position{}, fmt.Errorf("malformed avg_cost %q: %w", avgCost, err)
	}
	pos.AvgCost = parsed

	return pos, nil
}
