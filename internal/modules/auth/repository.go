package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles user and API key database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new auth repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "auth").Logger(),
	}
}

// CreateUser registers a user and issues a fresh API key
func (r *Repository) CreateUser(username, password string) (User, error) {
	if username == "" || password == "" {
		return User{}, fmt.Errorf("username and password are required: %w", domain.ErrInvalidArgument)
	}

	user := User{
		Username:  username,
		Password:  password,
		APIKey:    uuid.NewString(),
		CreatedAt: time.Now().Format(time.RFC3339),
	}

	res, err := r.db.Exec(
		"INSERT INTO users (username, password, api_key, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Password, user.APIKey, user.CreatedAt,
	)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user %q: %w", username, domain.ErrPersistence)
	}
	user.ID, _ = res.LastInsertId()

	r.log.Info().Str("username", username).Msg("User created")
	return user, nil
}

// GetByCredentials returns the user matching the username/password pair.
// Unknown users and wrong passwords both fail with ErrUnauthorized.
func (r *Repository) GetByCredentials(username, password string) (User, error) {
	user, err := r.scanUser(r.db.QueryRow(
		"SELECT id, username, password, api_key, created_at FROM users WHERE username = ? AND password = ?",
		username, password))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("unknown credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// VerifyKey returns the user owning the given API key
func (r *Repository) VerifyKey(apiKey string) (User, error) {
	if apiKey == "" {
		return User{}, fmt.Errorf("missing api key: %w", domain.ErrUnauthorized)
	}

	user, err := r.scanUser(r.db.QueryRow(
		"SELECT id, username, password, api_key, created_at FROM users WHERE api_key = ?", apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("unknown api key: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to look up api key: %w", err)
	}
	return user, nil
}

// EnsureUser creates the user if it does not exist yet and returns it
// either way. Used to seed the admin account on startup.
func (r *Repository) EnsureUser(username, password string) (User, error) {
	user, err := r.GetByCredentials(username, password)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		return User{}, err
	}
	return r.CreateUser(username, password)
}

func (r *Repository) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.APIKey, &user.CreatedAt)
	return user, err
}
