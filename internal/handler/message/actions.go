package message

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kobohq/kobo-clipper/internal/model/pin"
	"github.com/kobohq/kobo-clipper/internal/protocol"
	"github.com/kobohq/kobo-clipper/internal/service/coordinator"
)

// SessionView is the read-only session shape crossing the boundary. The
// bearer token never leaves the coordinator.
type SessionView struct {
	SignedIn  bool      `json:"signedIn"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CompanyID int64     `json:"companyId,omitempty"`
	BrandID   int64     `json:"brandId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// BindCoordinator registers every recognized action against the coordinator
// service.
func BindCoordinator(d *protocol.Dispatcher, svc *coordinator.Service) {
	d.Register(protocol.ActionAuthenticate, func(ctx context.Context, data json.RawMessage) (any, error) {
		var creds pin.Credentials
		if err := json.Unmarshal(data, &creds); err != nil {
			return nil, err
		}
		return svc.Authenticate(ctx, creds)
	})

	d.Register(protocol.ActionSignOut, func(ctx context.Context, data json.RawMessage) (any, error) {
		return nil, svc.SignOut(ctx)
	})

	d.Register(protocol.ActionSaveImage, func(ctx context.Context, data json.RawMessage) (any, error) {
		var req pin.SaveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.SaveImage(ctx, req)
	})

	d.Register(protocol.ActionGetSession, func(ctx context.Context, data json.RawMessage) (any, error) {
		sess, ok := svc.GetSession(ctx)
		if !ok {
			return SessionView{}, nil
		}
		return SessionView{
			SignedIn:  true,
			Name:      sess.Identity.DisplayName,
			Email:     sess.Identity.Email,
			CompanyID: sess.CompanyID,
			BrandID:   sess.BrandID,
			CreatedAt: sess.CreatedAt,
		}, nil
	})

	d.Register(protocol.ActionGetStats, func(ctx context.Context, data json.RawMessage) (any, error) {
		return svc.GetStats(ctx), nil
	})

	d.Register(protocol.ActionListBoards, func(ctx context.Context, data json.RawMessage) (any, error) {
		return svc.ListBoards(ctx)
	})

	d.Register(protocol.ActionSearch, func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload struct {
			Query string `json:"query"`
			Type  string `json:"type"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return svc.Search(ctx, payload.Query, payload.Type)
	})

	d.Register(protocol.ActionLinkPin, func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload struct {
			PinID int64      `json:"pinId"`
			Links []pin.Link `json:"links"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return svc.LinkPin(ctx, payload.PinID, payload.Links)
	})

	d.Register(protocol.ActionGetPreferences, func(ctx context.Context, data json.RawMessage) (any, error) {
		return svc.GetPreferences(ctx)
	})

	d.Register(protocol.ActionUpdatePreferences, func(ctx context.Context, data json.RawMessage) (any, error) {
		return svc.UpdatePreferences(ctx, data)
	})
}
