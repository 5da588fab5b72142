package protocol

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is the uniform handler contract: every action takes the raw
// request payload and returns a result or an error. There is no "will respond
// later" sentinel; the dispatcher always produces exactly one response for a
// recognized action.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

// Dispatcher routes requests to registered action handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

// Register binds an action name to its handler. Registration happens at
// startup only; Dispatch is safe for concurrent use afterwards.
func (d *Dispatcher) Register(action string, h HandlerFunc) {
	d.handlers[action] = h
}

// Dispatch runs the handler for req and folds the outcome into a Response.
// The second return is false for unrecognized actions, in which case the
// transport decides whether to stay silent (WebSocket) or answer 404 (HTTP).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Response, bool) {
	h, ok := d.handlers[req.Action]
	if !ok {
		log.Debug().Str("action", req.Action).Msg("unrecognized action")
		return Response{}, false
	}

	result, err := h(ctx, req.Data)
	if err != nil {
		return Response{ID: req.ID, Success: false, Error: err.Error()}, true
	}

	resp := Response{ID: req.ID, Success: true}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			log.Error().Err(err).Str("action", req.Action).Msg("failed to encode result")
			return Response{ID: req.ID, Success: false, Error: "internal encoding error"}, true
		}
		resp.Data = raw
	}
	return resp, true
}
