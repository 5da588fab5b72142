package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrDaemonUnavailable means the coordinator daemon could not be reached.
	// It is terminal for the current page: the user has to start the daemon
	// and reload, there is nothing to retry automatically.
	ErrDaemonUnavailable = errors.New("clipper daemon unavailable, start clipperd and reload the page")

	// ErrUnknownAction is returned when the daemon does not recognize the
	// requested action.
	ErrUnknownAction = errors.New("unknown action")
)

// RemoteError carries a {success:false} answer from the coordinator.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Client performs one-shot calls against the daemon's HTTP message endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient points a client at the daemon base URL, e.g.
// "http://127.0.0.1:8732".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Call sends one request and returns the response payload. A transport-level
// failure maps to ErrDaemonUnavailable; a declined request maps to a
// RemoteError carrying the coordinator's message.
func (c *Client) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	req := Request{Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", action, err)
		}
		req.Data = raw
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/message", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return nil, &RemoteError{Message: resp.Error}
	}
	return resp.Data, nil
}

// Conn is a long-lived WebSocket link to the daemon, used by page observers.
// Responses are correlated to requests by ID, so saves for different images
// interleave freely on one connection.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
}

// Dial opens a WebSocket connection to the daemon's /api/ws endpoint.
func Dial(ctx context.Context, wsURL string) (*Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}

	c := &Conn{ws: ws, pending: make(map[string]chan Response)}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	for {
		var resp Response
		if err := c.ws.ReadJSON(&resp); err != nil {
			c.failAll()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
		// Responses for torn-down callers are dropped.
	}
}

func (c *Conn) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call sends one request over the connection and waits for its correlated
// response or context expiry.
func (c *Conn) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrDaemonUnavailable
	}
	id := uuid.NewString()
	ch := make(chan Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := Request{ID: id, Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.drop(id)
			return nil, fmt.Errorf("encode %s payload: %w", action, err)
		}
		req.Data = raw
	}

	c.writeMu.Lock()
	err := c.ws.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.drop(id)
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrDaemonUnavailable
		}
		if !resp.Success {
			return nil, &RemoteError{Message: resp.Error}
		}
		return resp.Data, nil
	case <-ctx.Done():
		c.drop(id)
		return nil, ctx.Err()
	}
}

func (c *Conn) drop(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Close shuts the connection down and fails any in-flight calls.
func (c *Conn) Close() error {
	err := c.ws.Close()
	c.failAll()
	return err
}
