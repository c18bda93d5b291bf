package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *Repository) {
	t.Helper()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	return NewHandler(repo, zerolog.Nop()), repo
}

func TestHandleGetAPIKey(t *testing.T) {
	handler, repo := newTestHandler(t)

	created, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/apikey", nil)
	req.Header.Set("username", "alice")
	req.Header.Set("password", "secret")
	w := httptest.NewRecorder()
	handler.HandleGetAPIKey(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			APIKey string `json:"apikey"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, created.APIKey, resp.Data.APIKey)
}

func TestHandleGetAPIKey_BadCredentials(t *testing.T) {
	handler, repo := newTestHandler(t)

	_, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "wrong"},
		{"unknown user", "mallory", "secret"},
		{"missing headers", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/apikey", nil)
			req.Header.Set("username", tt.username)
			req.Header.Set("password", tt.password)
			w := httptest.NewRecorder()
			handler.HandleGetAPIKey(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), "FORBIDDEN")
		})
	}
}

func TestRequireKey(t *testing.T) {
	handler, repo := newTestHandler(t)

	user, err := repo.CreateUser("alice", "secret")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := handler.RequireKey(next)

	// Valid key passes through
	req := httptest.NewRequest("GET", "/api/stocks", nil)
	req.Header.Set(HeaderAPIKey, user.APIKey)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Missing key is forbidden before the handler runs
	req = httptest.NewRequest("GET", "/api/stocks", nil)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	// Bogus key is forbidden too
	req = httptest.NewRequest("GET", "/api/stocks", nil)
	req.Header.Set(HeaderAPIKey, "bogus")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
