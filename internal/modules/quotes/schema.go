package quotes

import "database/sql"

// Schema for the stocks table. Price is stored as a decimal string; the
// name is the upsert key.
const Schema = `
CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    price TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// InitSchema ensures the stocks table exists
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
