package observer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kobohq/kobo-clipper/internal/model/pin"
	"github.com/kobohq/kobo-clipper/internal/protocol"
)

// DaemonSaver reaches the coordinator over a long-lived protocol connection.
type DaemonSaver struct {
	conn *protocol.Conn
}

// NewDaemonSaver wraps an established connection to the daemon.
func NewDaemonSaver(conn *protocol.Conn) *DaemonSaver {
	return &DaemonSaver{conn: conn}
}

// SignedIn asks the coordinator for the session view. No remote API call is
// involved.
func (d *DaemonSaver) SignedIn(ctx context.Context) (bool, error) {
	raw, err := d.conn.Call(ctx, protocol.ActionGetSession, nil)
	if err != nil {
		return false, err
	}
	var view struct {
		SignedIn bool `json:"signedIn"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		return false, fmt.Errorf("decode session view: %w", err)
	}
	return view.SignedIn, nil
}

// Save sends one save request and waits for the coordinator's verdict.
func (d *DaemonSaver) Save(ctx context.Context, imageURL, pageURL, title, description string) error {
	req := pin.SaveRequest{
		ImageURL:    imageURL,
		PageURL:     pageURL,
		Title:       title,
		Description: description,
	}
	_, err := d.conn.Call(ctx, protocol.ActionSaveImage, req)
	return err
}

var _ Saver = (*DaemonSaver)(nil)
