package auth

import "database/sql"

// Schema for API users
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password TEXT NOT NULL,
    api_key TEXT UNIQUE NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_api_key ON users(api_key);
`

// InitSchema ensures the users table exists
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
