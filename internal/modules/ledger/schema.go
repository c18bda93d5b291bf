package ledger

import "database/sql"

// Schema for the transactions table. Rate is stored as a decimal string.
// There is deliberately no UPDATE or DELETE path against this table.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY,
    stock_id INTEGER NOT NULL,
    side TEXT NOT NULL,
    rate TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_stock ON transactions(stock_id);
CREATE INDEX IF NOT EXISTS idx_transactions_stock_side ON transactions(stock_id, side);
`

// InitSchema ensures the transactions table exists
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
