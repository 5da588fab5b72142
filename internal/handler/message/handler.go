// Package message exposes the coordinator's dispatcher over the two
// transports of the boundary: one-shot HTTP posts and long-lived WebSocket
// connections from page observers.
package message

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/protocol"
	"github.com/kobohq/kobo-clipper/pkg/utils"
)

// Handler serves the message boundary.
type Handler struct {
	dispatcher *protocol.Dispatcher
	upgrader   websocket.Upgrader
}

// New creates the boundary handler around a dispatcher.
func New(d *protocol.Dispatcher) *Handler {
	return &Handler{
		dispatcher: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the boundary under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/message", h.handleMessage)
	r.Get("/ws", h.handleWebSocket)
}

// handleMessage serves one-shot requests. Unrecognized actions answer 404;
// everything else answers 200 with the folded {success, error, data} result.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		utils.RespondError(w, http.StatusBadRequest, "action is required")
		return
	}

	resp, ok := h.dispatcher.Dispatch(r.Context(), req)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "unknown action")
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleWebSocket serves a long-lived observer connection. Each request is
// dispatched on its own goroutine so in-flight saves never block each other;
// unrecognized actions produce no frame at all.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	writer := newConnWriter(conn)

	// A request accepted here runs to completion even when the page goes
	// away mid-flight; only response delivery is tied to the connection.
	ctx := context.WithoutCancel(r.Context())

	for {
		var req protocol.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("observer connection closed")
			}
			return
		}

		go func(req protocol.Request) {
			resp, ok := h.dispatcher.Dispatch(ctx, req)
			if !ok {
				return
			}
			if err := writer.write(resp); err != nil {
				// The page went away mid-save; the result is discarded.
				log.Debug().Err(err).Str("action", req.Action).Msg("response undeliverable")
			}
		}(req)
	}
}
