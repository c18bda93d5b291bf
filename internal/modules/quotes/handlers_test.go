package quotes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/tradebook/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *events.Manager) {
	t.Helper()
	db := setupTestDB(t)
	em := events.NewManager(zerolog.Nop())
	return NewHandler(NewRepository(db, zerolog.Nop()), em, zerolog.Nop()), em
}

func TestHandleAddStock_CreatesAndUpdates(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(`{"name":"AAPL","price":150}`))
	w := httptest.NewRecorder()
	handler.HandleAddStock(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Stock created successfully")

	// Same name again: price overwrite, 200
	req = httptest.NewRequest("POST", "/api/stocks", strings.NewReader(`{"name":"AAPL","price":200}`))
	w = httptest.NewRecorder()
	handler.HandleAddStock(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Stock updated successfully")

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 200.0, resp.Data.Price)
}

func TestHandleAddStock_InvalidPayloads(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing name", `{"price":10}`},
		{"negative price", `{"name":"X","price":-5}`},
		{"non-numeric price", `{"name":"X","price":"abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.HandleAddStock(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestHandleAddStock_EmitsEvent(t *testing.T) {
	handler, em := newTestHandler(t)

	ch, cancel := em.Subscribe()
	defer cancel()

	req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(`{"name":"TSLA","price":250}`))
	w := httptest.NewRecorder()
	handler.HandleAddStock(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	ev := <-ch
	assert.Equal(t, events.StockUpdated, ev.Type)
	assert.Equal(t, "TSLA", ev.Data["name"])
}

func TestHandleListStocks(t *testing.T) {
	handler, _ := newTestHandler(t)

	for _, body := range []string{`{"name":"A","price":1.5}`, `{"name":"B","price":2}`} {
		req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(body))
		handler.HandleAddStock(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest("GET", "/api/stocks", nil)
	w := httptest.NewRecorder()
	handler.HandleListStocks(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success bool                     `json:"success"`
		Data    []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "A", resp.Data[0]["name"])
	assert.Equal(t, 1.5, resp.Data[0]["price"])
}
