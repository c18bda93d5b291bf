package auth

import (
	"database/sql"
	"testing"

	"github.com/aristath/tradebook/internal/database"
	"github.com/aristath/tradebook/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitSchema(db.Conn()))
	return db.Conn()
}

func TestCreateUser_IssuesKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	user, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.APIKey)

	other, err := repo.CreateUser("bob", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, user.APIKey, other.APIKey)
}

func TestCreateUser_RejectsEmptyCredentials(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	_, err := repo.CreateUser("", "secret")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = repo.CreateUser("alice", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGetByCredentials(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	created, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)

	user, err := repo.GetByCredentials("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, created.APIKey, user.APIKey)

	_, err = repo.GetByCredentials("alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = repo.GetByCredentials("nobody", "secret")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestVerifyKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	created, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)

	user, err := repo.VerifyKey(created.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = repo.VerifyKey("not-a-key")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = repo.VerifyKey("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestEnsureUser_IdempotentKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	first, err := repo.EnsureUser("admin", "hunter2")
	require.NoError(t, err)

	// Same credentials return the same key, not a new user
	second, err := repo.EnsureUser("admin", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.APIKey, second.APIKey)
}
