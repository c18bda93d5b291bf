package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/tradebook/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// StreamHandler pushes quote updates to WebSocket clients. Each connection
// gets its own event subscription; slow consumers miss events instead of
// blocking the emitter (see events.Manager).
type StreamHandler struct {
	events *events.Manager
	log    zerolog.Logger
}

// NewStreamHandler creates a new quote stream handler
func NewStreamHandler(eventManager *events.Manager, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		events: eventManager,
		log:    log.With().Str("handler", "quote_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/stocks/stream
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin checking handled by the CORS middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch, cancel := h.events.Subscribe()
	defer cancel()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Client connected to quote stream")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client gone")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "stream shutting down")
				return
			}
			if ev.Type != events.StockUpdated {
				continue
			}
			if err := h.writeEvent(ctx, conn, ev); err != nil {
				h.log.Debug().Err(err).Msg("Dropping quote stream client")
				return
			}
		}
	}
}

func (h *StreamHandler) writeEvent(ctx context.Context, conn *websocket.Conn, ev *events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, payload)
}
