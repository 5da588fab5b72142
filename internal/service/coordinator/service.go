package coordinator

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/kobohq/kobo-clipper/internal/api"
	"github.com/kobohq/kobo-clipper/internal/model/pin"
	"github.com/kobohq/kobo-clipper/internal/model/session"
)

var (
	// ErrNotSignedIn is returned before any network call when no session is
	// stored.
	ErrNotSignedIn = errors.New("please sign in to Kobo first")

	// ErrSessionExpired is returned when the remote API answered 401; the
	// stored session has already been cleared when a caller sees this.
	ErrSessionExpired = errors.New("session expired, please sign in again")
)

// defaultPinTitle is used when a save request carries no page title.
const defaultPinTitle = "Saved from web"

// Gateway is the slice of the API client the coordinator drives.
type Gateway interface {
	SetTenant(companyID, brandID int64)
	Login(ctx context.Context, creds pin.Credentials) (*session.Session, error)
	SavePin(ctx context.Context, token string, req pin.SaveRequest) (json.RawMessage, error)
	ListBoards(ctx context.Context, token string) ([]pin.Board, error)
	SearchItems(ctx context.Context, token, query, itemType string) (json.RawMessage, error)
	LinkPin(ctx context.Context, token string, pinID int64, links []pin.Link) (json.RawMessage, error)
	GetPreferences(ctx context.Context, token string) (json.RawMessage, error)
	UpdatePreferences(ctx context.Context, token string, prefs any) (json.RawMessage, error)
}

// Service is the sole holder of the session and the sole caller of the API
// gateway. Every page context and the control surface reach it through the
// message boundary; none of them ever see the raw token.
type Service struct {
	store session.Store
	gw    Gateway
}

// NewService wires the coordinator to its session store and gateway. When a
// session was hydrated from disk its tenant scope is re-applied to the
// gateway immediately.
func NewService(store session.Store, gw Gateway) *Service {
	s := &Service{store: store, gw: gw}
	if current, ok := store.Current(); ok {
		gw.SetTenant(current.CompanyID, current.BrandID)
		log.Info().Str("email", current.Identity.Email).Msg("restored saved session")
	}
	return s
}

// AuthResult is the minimal payload echoed back after sign-in. The token
// stays inside the coordinator.
type AuthResult struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Authenticate logs the user in, persists the resulting session and scopes
// the gateway to the user's tenant.
func (s *Service) Authenticate(ctx context.Context, creds pin.Credentials) (AuthResult, error) {
	sess, err := s.gw.Login(ctx, creds)
	if err != nil {
		log.Warn().Err(err).Str("email", creds.Email).Msg("authentication failed")
		return AuthResult{}, err
	}

	if err := s.store.Set(sess); err != nil {
		return AuthResult{}, err
	}
	s.gw.SetTenant(sess.CompanyID, sess.BrandID)

	log.Info().Str("email", sess.Identity.Email).Msg("signed in")
	return AuthResult{Name: sess.Identity.DisplayName, Email: sess.Identity.Email}, nil
}

// SignOut clears the session from memory and disk. It always succeeds.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to remove stored session")
	}
	log.Info().Msg("signed out")
	return nil
}

// GetSession returns a read-only copy of the current session, or absence.
// No network call is made.
func (s *Service) GetSession(ctx context.Context) (*session.Session, bool) {
	return s.store.Current()
}

// SaveImage persists one clipped image as a pin. A missing session fails
// fast without touching the network; a 401 invalidates the stored session
// and is reported as ErrSessionExpired so the caller can prompt for
// re-authentication.
func (s *Service) SaveImage(ctx context.Context, req pin.SaveRequest) (json.RawMessage, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	if req.Title == "" {
		req.Title = defaultPinTitle
	}

	result, err := s.gw.SavePin(ctx, sess.Token, req)
	if err != nil {
		return nil, s.translate(err)
	}

	log.Info().Str("image", req.ImageURL).Str("page", req.PageURL).Msg("image saved")
	return result, nil
}

// GetStats derives aggregate counts from the board list. Stats are
// best-effort: with no session or on any failure it returns zero values and
// no error.
func (s *Service) GetStats(ctx context.Context) pin.Stats {
	sess, ok := s.store.Current()
	if !ok {
		return pin.Stats{}
	}

	boards, err := s.gw.ListBoards(ctx, sess.Token)
	if err != nil {
		log.Debug().Err(err).Msg("stats unavailable")
		return pin.Stats{}
	}

	stats := pin.Stats{TotalBoards: len(boards)}
	for _, b := range boards {
		stats.SavedToday += b.PinsCount
	}
	return stats
}

// ListBoards returns the user's boards.
func (s *Service) ListBoards(ctx context.Context) ([]pin.Board, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	boards, err := s.gw.ListBoards(ctx, sess.Token)
	if err != nil {
		return nil, s.translate(err)
	}
	return boards, nil
}

// Search queries remote entities by free text.
func (s *Service) Search(ctx context.Context, query, itemType string) (json.RawMessage, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	result, err := s.gw.SearchItems(ctx, sess.Token, query, itemType)
	if err != nil {
		return nil, s.translate(err)
	}
	return result, nil
}

// LinkPin associates a pin with other remote entities.
func (s *Service) LinkPin(ctx context.Context, pinID int64, links []pin.Link) (json.RawMessage, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	result, err := s.gw.LinkPin(ctx, sess.Token, pinID, links)
	if err != nil {
		return nil, s.translate(err)
	}
	return result, nil
}

// GetPreferences fetches the user's remote preferences.
func (s *Service) GetPreferences(ctx context.Context) (json.RawMessage, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	result, err := s.gw.GetPreferences(ctx, sess.Token)
	if err != nil {
		return nil, s.translate(err)
	}
	return result, nil
}

// UpdatePreferences stores the user's remote preferences.
func (s *Service) UpdatePreferences(ctx context.Context, prefs json.RawMessage) (json.RawMessage, error) {
	sess, ok := s.store.Current()
	if !ok {
		return nil, ErrNotSignedIn
	}
	result, err := s.gw.UpdatePreferences(ctx, sess.Token, prefs)
	if err != nil {
		return nil, s.translate(err)
	}
	return result, nil
}

// translate converts a 401 into the distinct session-expired failure,
// clearing the stored session as a side effect. Other errors pass through.
func (s *Service) translate(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		log.Warn().Msg("remote rejected token, clearing session")
		if clearErr := s.store.Clear(); clearErr != nil {
			log.Warn().Err(clearErr).Msg("failed to clear expired session")
		}
		return ErrSessionExpired
	}
	return err
}
