package quotes

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles stock database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new stock repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "quotes").Logger(),
	}
}

// Upsert creates the stock if absent, otherwise overwrites its price.
// Returns the stored stock and whether it was newly created. Validation
// failures reject before any write.
func (r *Repository) Upsert(name string, price decimal.Decimal) (Stock, bool, error) {
	stock := Stock{Name: name, Price: price}
	if err := stock.Validate(); err != nil {
		return Stock{}, false, fmt.Errorf("invalid stock %q: %w", name, err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return Stock{}, false, fmt.Errorf("failed to begin transaction: %w", domain.ErrPersistence)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	var createdAt string
	err = tx.QueryRow("SELECT id, created_at FROM stocks WHERE name = ?", stock.Name).Scan(&id, &createdAt)

	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		createdAt = time.Now().Format(time.RFC3339)
		res, err := tx.Exec(
			"INSERT INTO stocks (name, price, created_at) VALUES (?, ?, ?)",
			stock.Name, stock.Price.String(), createdAt,
		)
		if err != nil {
			return Stock{}, false, fmt.Errorf("failed to insert stock: %w", domain.ErrPersistence)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return Stock{}, false, fmt.Errorf("failed to read stock id: %w", domain.ErrPersistence)
		}
		created = true
	case err != nil:
		return Stock{}, false, fmt.Errorf("failed to query stock: %w", domain.ErrPersistence)
	default:
		if _, err := tx.Exec("UPDATE stocks SET price = ? WHERE id = ?", stock.Price.String(), id); err != nil {
			return Stock{}, false, fmt.Errorf("failed to update stock price: %w", domain.ErrPersistence)
		}
	}

	if err := tx.Commit(); err != nil {
		return Stock{}, false, fmt.Errorf("failed to commit transaction: %w", domain.ErrPersistence)
	}

	stock.ID = id
	stock.CreatedAt = createdAt

	r.log.Info().
		Str("name", stock.Name).
		Str("price", stock.Price.String()).
		Bool("created", created).
		Msg("Stock upserted")

	return stock, created, nil
}

// GetByID returns a stock by id
func (r *Repository) GetByID(id int64) (Stock, error) {
	row := r.db.QueryRow("SELECT id, name, price, created_at FROM stocks WHERE id = ?", id)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Stock{}, fmt.Errorf("stock %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return Stock{}, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

// GetByName returns a stock by its unique name
func (r *Repository) GetByName(name string) (Stock, error) {
	row := r.db.QueryRow("SELECT id, name, price, created_at FROM stocks WHERE name = ?", name)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Stock{}, fmt.Errorf("stock %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return Stock{}, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

// GetAll returns all stocks in insertion order
func (r *Repository) GetAll() ([]Stock, error) {
	rows, err := r.db.Query("SELECT id, name, price, created_at FROM stocks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", domain.ErrPersistence)
	}
	defer rows.Close()

	var stocks []Stock
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (Stock, error) {
	var stock Stock
	var price string

	if err := row.Scan(&stock.ID, &stock.Name, &price, &stock.CreatedAt); err != nil {
		return Stock{}, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return Stock{}, fmt.Errorf("malformed price %q: %w", price, err)
	}
	stock.Price = parsed

	return stock, nil
}
