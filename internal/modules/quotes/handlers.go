package quotes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/aristath/tradebook/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles stock HTTP requests
type Handler struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewHandler creates a new stock handler
func NewHandler(repo *Repository, eventManager *events.Manager, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		events: eventManager,
		log:    log.With().Str("handler", "quotes").Logger(),
	}
}

// HandleListStocks returns all registered stocks
// GET /api/stocks
func (h *Handler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list stocks")
		h.writeError(w, http.StatusInternalServerError, "Failed to list stocks")
		return
	}

	result := make([]map[string]interface{}, 0, len(stocks))
	for _, s := range stocks {
		result = append(result, map[string]interface{}{
			"id":         s.ID,
			"name":       s.Name,
			"price":      s.Price.InexactFloat64(),
			"created_at": s.CreatedAt,
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

type addStockRequest struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// HandleAddStock creates a stock or overwrites its price (upsert by name)
// POST /api/stocks
func (h *Handler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects `name` and `price`")
		return
	}

	price, err := decimal.NewFromString(req.Price.String())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects a numeric `price`")
		return
	}

	stock, created, err := h.repo.Upsert(req.Name, price)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			h.writeError(w, http.StatusBadRequest, "Request expects a non-empty `name` and non-negative `price`")
			return
		}
		h.log.Error().Err(err).Str("name", req.Name).Msg("Failed to upsert stock")
		h.writeError(w, http.StatusInternalServerError, "Failed to save stock")
		return
	}

	h.events.Emit(events.StockUpdated, "quotes", map[string]interface{}{
		"id":    stock.ID,
		"name":  stock.Name,
		"price": stock.Price.InexactFloat64(),
	})

	status := http.StatusOK
	message := "Stock updated successfully"
	if created {
		status = http.StatusCreated
		message = "Stock created successfully"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data": map[string]interface{}{
			"id":    stock.ID,
			"name":  stock.Name,
			"price": stock.Price.InexactFloat64(),
		},
	})
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}
