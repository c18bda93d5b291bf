package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles the append-only transaction log
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// Append constructs and persists one entry. A storage failure surfaces as
// ErrPersistence and the caller must treat the whole trade as failed; no
// position mutation may proceed.
func (r *Repository) Append(stockID int64, side Side, rate decimal.Decimal, quantity int64) (Entry, error) {
	entry := Entry{
		StockID:   stockID,
		Side:      side,
		Rate:      rate,
		Quantity:  quantity,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	res, err := r.db.Exec(
		"INSERT INTO transactions (stock_id, side, rate, quantity, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.StockID, string(entry.Side), entry.Rate.String(), entry.Quantity, entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to append ledger entry: %w", domain.ErrPersistence)
	}

	entry.ID, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read ledger entry id: %w", domain.ErrPersistence)
	}

	r.log.Info().
		Int64("stock_id", entry.StockID).
		Str("side", string(entry.Side)).
		Int64("quantity", entry.Quantity).
		Str("rate", entry.Rate.String()).
		Msg("Ledger entry appended")

	return entry, nil
}

// FindByStock returns all entries for a stock in creation order. Passing a
// valid side narrows the result to that side.
func (r *Repository) FindByStock(stockID int64, side ...Side) ([]Entry, error) {
	query := "SELECT id, stock_id, side, rate, quantity, created_at FROM transactions WHERE stock_id = ? ORDER BY id"
	args := []interface{}{stockID}

	if len(side) > 0 && side[0].IsValid() {
		query = "SELECT id, stock_id, side, rate, quantity, created_at FROM transactions WHERE stock_id = ? AND side = ? ORDER BY id"
		args = append(args, string(side[0]))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", domain.ErrPersistence)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var sideStr, rateStr string
		if err := rows.Scan(&entry.ID, &entry.StockID, &sideStr, &rateStr, &entry.Quantity, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Side = Side(sideStr)
		entry.Rate, err = decimal.NewFromString(rateStr)
		if err != nil {
			return nil, fmt.Errorf("malformed rate %q: %w", rateStr, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// Count returns the total number of ledger entries
func (r *Repository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", domain.ErrPersistence)
	}
	return count, nil
}
