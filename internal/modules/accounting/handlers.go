package accounting

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/aristath/tradebook/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles trade and portfolio HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new accounting handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "accounting").Logger(),
	}
}

type addTradeRequest struct {
	StockID  int64  `json:"stockId"`
	Quantity int64  `json:"quantity"`
	Side     string `json:"type"`
}

// HandleAddTrade opens a position for a stock at its current price
// POST /api/trades
func (h *Handler) HandleAddTrade(w http.ResponseWriter, r *http.Request) {
	var req addTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects `stockId`, `quantity` and `type`")
		return
	}
	if req.StockID <= 0 || req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "Request expects valid `stockId` and positive `quantity`")
		return
	}

	side, err := ledger.SideFromString(req.Side)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects `type` of BUY or SELL")
		return
	}

	pos, err := h.service.AddTrade(req.StockID, req.Quantity, side)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONMessage(w, http.StatusCreated, "Trade successful", positionResponse(pos))
}

type modifyTradeRequest struct {
	Quantity int64  `json:"quantity"`
	Side     string `json:"type"`
}

// HandleModifyTrade applies a BUY or SELL to an existing position
// PUT /api/trades/{positionID}
func (h *Handler) HandleModifyTrade(w http.ResponseWriter, r *http.Request) {
	positionID, ok := h.positionID(w, r)
	if !ok {
		return
	}

	var req modifyTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects `quantity` and `type`")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "Request expects param `quantity`")
		return
	}

	side, err := ledger.SideFromString(req.Side)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects `type` of BUY or SELL")
		return
	}

	pos, err := h.service.ModifyTrade(positionID, req.Quantity, side)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONMessage(w, http.StatusOK, "Trade updated", positionResponse(pos))
}

type deleteTradeRequest struct {
	Quantity int64 `json:"quantity"`
}

// HandleDeleteTrade sells quantity out of a position, removing it entirely
// when the full held quantity is sold
// DELETE /api/trades/{positionID}
func (h *Handler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	positionID, ok := h.positionID(w, r)
	if !ok {
		return
	}

	var req deleteTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Request expects param `quantity`")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "Request expects param `quantity`")
		return
	}

	pos, err := h.service.DeleteTrade(positionID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONMessage(w, http.StatusOK, "Trade successfully removed", positionResponse(pos))
}

// HandleGetHoldings returns the holdings report
// GET /api/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.Holdings()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute holdings")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute holdings")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"holdings": holdings})
}

// HandleGetPortfolio returns all ledger entries of stocks with an open
// position, grouped by stock
// GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.PortfolioHistory()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio history")
		h.writeError(w, http.StatusInternalServerError, "Failed to build portfolio history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"portfolio": history})
}

// HandleGetReturns returns the cumulative mark-to-market value of the book
// GET /api/returns
func (h *Handler) HandleGetReturns(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.CumulativeReturn()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute cumulative return")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute cumulative return")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"returns": total.InexactFloat64()})
}

// HandleGetReturnsHistory returns recorded valuation snapshots
// GET /api/returns/history
func (h *Handler) HandleGetReturnsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 90
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	snaps, err := h.service.snapshots.GetHistory(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load snapshot history")
		h.writeError(w, http.StatusInternalServerError, "Failed to load snapshot history")
		return
	}

	result := make([]map[string]interface{}, 0, len(snaps))
	for _, s := range snaps {
		result = append(result, map[string]interface{}{
			"date":           s.Date,
			"total_value":    s.TotalValue.InexactFloat64(),
			"position_count": s.PositionCount,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"history": result})
}

// Helper methods

func (h *Handler) positionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "positionID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Request expects a numeric position id")
		return 0, false
	}
	return id, true
}

func positionResponse(pos Position) map[string]interface{} {
	return map[string]interface{}{
		"id":         pos.ID,
		"stock_id":   pos.StockID,
		"quantity":   pos.Quantity,
		"average":    pos.AvgCost.InexactFloat64(),
		"created_at": pos.CreatedAt,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		h.writeError(w, http.StatusUnprocessableEntity, "Trade already exists")
	case errors.Is(err, domain.ErrInsufficientPosition):
		h.writeError(w, http.StatusUnprocessableEntity, "You don't have enough stocks to sell")
	default:
		h.log.Error().Err(err).Msg("Trade operation failed")
		h.writeError(w, http.StatusInternalServerError, "Error making transaction")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeJSONMessage(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": message, "data": data})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message})
}
