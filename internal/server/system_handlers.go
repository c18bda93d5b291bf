package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/tradebook/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles health and system monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	db        *database.DB
	startedAt time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		db:        db,
		startedAt: time.Now(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	UptimeSeconds    int64   `json:"uptime_seconds"`
	CPUPercent       float64 `json:"cpu_percent"`
	RAMPercent       float64 `json:"ram_percent"`
	HeapAllocMB      float64 `json:"heap_alloc_mb"`
	Goroutines       int     `json:"goroutines"`
	StockCount       int     `json:"stock_count"`
	PositionCount    int     `json:"position_count"`
	TransactionCount int     `json:"transaction_count"`
}

// HandleHealth is the unauthenticated liveness probe
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSystemStatus returns process and book statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatusResponse{
		UptimeSeconds:    int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:       cpuPercent,
		RAMPercent:       ramPercent,
		HeapAllocMB:      float64(memStats.HeapAlloc) / 1024 / 1024,
		Goroutines:       runtime.NumGoroutine(),
		StockCount:       h.countRows("stocks"),
		PositionCount:    h.countRows("positions"),
		TransactionCount: h.countRows("transactions"),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": response}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) countRows(table string) int {
	var count int
	query := map[string]string{
		"stocks":       "SELECT COUNT(*) FROM stocks",
		"positions":    "SELECT COUNT(*) FROM positions",
		"transactions": "SELECT COUNT(*) FROM transactions",
	}[table]

	if err := h.db.Conn().QueryRow(query).Scan(&count); err != nil {
		h.log.Warn().Err(err).Str("table", table).Msg("Failed to count rows")
		return 0
	}
	return count
}

// getSystemStats calculates CPU and RAM usage percentages. The CPU sample
// window is 100ms so the status call stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
