package accounting

import "database/sql"

// Schema for positions and valuation snapshots. The UNIQUE constraint on
// stock_id backs the one-open-position-per-stock invariant; avg_cost is a
// decimal string.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
    id INTEGER PRIMARY KEY,
    stock_id INTEGER UNIQUE NOT NULL,
    quantity INTEGER NOT NULL,
    avg_cost TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY,
    date TEXT UNIQUE NOT NULL,
    total_value TEXT NOT NULL,
    position_count INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
`

// InitSchema ensures the accounting tables exist
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
