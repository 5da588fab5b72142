package message

import (
	"sync"

	"github.com/gorilla/websocket"
)

// connWriter serializes concurrent frame writes; gorilla connections allow
// only one writer at a time.
type connWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnWriter(conn *websocket.Conn) *connWriter {
	return &connWriter{conn: conn}
}

func (w *connWriter) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}
