// Package protocol defines the message-passing boundary between page
// observers, the control surface and the coordinator daemon: a typed
// request/response envelope, the action names, and the dispatch contract.
package protocol

import "encoding/json"

// Actions recognized by the coordinator. Anything else receives no response
// on the WebSocket boundary; callers own their timeout.
const (
	ActionAuthenticate      = "authenticate"
	ActionSignOut           = "signOut"
	ActionSaveImage         = "saveToKobo"
	ActionGetSession        = "getSession"
	ActionGetStats          = "getStats"
	ActionListBoards        = "listBoards"
	ActionSearch            = "search"
	ActionLinkPin           = "linkPin"
	ActionGetPreferences    = "getPreferences"
	ActionUpdatePreferences = "updatePreferences"
)

// Request is one message into the coordinator. ID correlates the response on
// long-lived connections; one-shot HTTP callers may leave it empty.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Response is the uniform result shape. Failures cross the boundary as
// {success:false, error:message}; no richer fault object ever does.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
