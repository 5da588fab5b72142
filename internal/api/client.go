package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kobohq/kobo-clipper/internal/model/pin"
	"github.com/kobohq/kobo-clipper/internal/model/session"
)

// DefaultTenantID is used for the company and brand headers when the session
// does not carry explicit tenant identifiers.
const DefaultTenantID = 1

// Client is a stateless translator from typed operations to HTTP calls
// against one fixed base URL. The bearer token is passed per call; the client
// itself holds no session state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	companyID  int64
	brandID    int64
}

// NewClient builds a gateway client for the given API base URL, e.g.
// "https://app.example.com/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		companyID:  DefaultTenantID,
		brandID:    DefaultTenantID,
	}
}

// SetTenant overrides the tenant headers attached to every call. Zero values
// fall back to DefaultTenantID.
func (c *Client) SetTenant(companyID, brandID int64) {
	if companyID == 0 {
		companyID = DefaultTenantID
	}
	if brandID == 0 {
		brandID = DefaultTenantID
	}
	c.companyID = companyID
	c.brandID = brandID
}

func (c *Client) headers(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-Company-Id", strconv.FormatInt(c.companyID, 10))
	h.Set("X-Brand-Id", strconv.FormatInt(c.brandID, 10))
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// remoteMessage is the only structure the failure path relies on: an optional
// human-readable message field in error bodies.
type remoteMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (m remoteMessage) text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Error
}

// doJSON performs one request and decodes the 2xx body into out (when out is
// non-nil). Any non-2xx status becomes an *OperationError named after op.
func (c *Client) doJSON(ctx context.Context, op, method, path string, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header = c.headers(token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg remoteMessage
		_ = json.Unmarshal(raw, &msg)
		return &OperationError{Op: op, Status: resp.StatusCode, Message: msg.text()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// passthrough runs an operation whose response body is returned unparsed.
func (c *Client) passthrough(ctx context.Context, op, method, path, token string, body any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.doJSON(ctx, op, method, path, token, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// loginResponse is the single recognized shape of the authentication reply.
// Anything that does not carry access_token is rejected as malformed rather
// than probed for alternative field spellings.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		CurrentCompanyID int64  `json:"current_company_id"`
		CurrentBrandID   int64  `json:"current_brand_id"`
	} `json:"user"`
}

// Login authenticates the user and builds a session from the response. The
// login call itself carries no bearer token.
func (c *Client) Login(ctx context.Context, creds pin.Credentials) (*session.Session, error) {
	var resp loginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", "", creds, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: no authentication token in response: %w", ErrMalformedResponse)
	}

	s := &session.Session{
		Token: resp.AccessToken,
		Identity: session.Identity{
			ID:          resp.User.ID,
			DisplayName: resp.User.Name,
			Email:       resp.User.Email,
		},
		CompanyID: resp.User.CurrentCompanyID,
		BrandID:   resp.User.CurrentBrandID,
		CreatedAt: time.Now().UTC(),
	}
	if s.CompanyID == 0 {
		s.CompanyID = DefaultTenantID
	}
	if s.BrandID == 0 {
		s.BrandID = DefaultTenantID
	}
	return s, nil
}

// boardsResponse is the list envelope the boards endpoint answers with.
type boardsResponse struct {
	Data []pin.Board `json:"data"`
}

// ListBoards returns the user's boards.
func (c *Client) ListBoards(ctx context.Context, token string) ([]pin.Board, error) {
	var resp boardsResponse
	if err := c.doJSON(ctx, "list boards", http.MethodGet, "/inspiration/boards", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateBoard creates a board and returns the remote payload unchanged.
func (c *Client) CreateBoard(ctx context.Context, token string, board any) (json.RawMessage, error) {
	return c.passthrough(ctx, "create board", http.MethodPost, "/inspiration/boards", token, board)
}

// GetBoard fetches one board with its pins.
func (c *Client) GetBoard(ctx context.Context, token string, boardID int64) (json.RawMessage, error) {
	return c.passthrough(ctx, "get board", http.MethodGet, fmt.Sprintf("/inspiration/boards/%d", boardID), token, nil)
}

// UpdateBoard applies updates to a board.
func (c *Client) UpdateBoard(ctx context.Context, token string, boardID int64, updates any) (json.RawMessage, error) {
	return c.passthrough(ctx, "update board", http.MethodPut, fmt.Sprintf("/inspiration/boards/%d", boardID), token, updates)
}

// ShareBoard updates a board's sharing settings.
func (c *Client) ShareBoard(ctx context.Context, token string, boardID int64, settings any) (json.RawMessage, error) {
	return c.passthrough(ctx, "share board", http.MethodPost, fmt.Sprintf("/inspiration/boards/%d/share", boardID), token, settings)
}

// SavePin sends a clipped image straight to the save-pin endpoint. This is
// the operation behind the hover affordance.
func (c *Client) SavePin(ctx context.Context, token string, req pin.SaveRequest) (json.RawMessage, error) {
	return c.passthrough(ctx, "save pin", http.MethodPost, "/inspiration/save-pin", token, req)
}

// CreatePin creates a pin. When image is non-nil the image is uploaded first
// and the resulting file URL is attached to the pin payload.
func (c *Client) CreatePin(ctx context.Context, token string, p pin.Pin, image *ImageInput) (json.RawMessage, error) {
	if image != nil {
		fileURL, err := c.UploadImage(ctx, token, *image)
		if err != nil {
			return nil, err
		}
		p.FileURL = fileURL
	}
	return c.passthrough(ctx, "create pin", http.MethodPost, "/inspiration/pins", token, p)
}

// GetPin fetches pin details.
func (c *Client) GetPin(ctx context.Context, token string, pinID int64) (json.RawMessage, error) {
	return c.passthrough(ctx, "get pin", http.MethodGet, fmt.Sprintf("/inspiration/pins/%d", pinID), token, nil)
}

// UpdatePin applies updates to a pin.
func (c *Client) UpdatePin(ctx context.Context, token string, pinID int64, updates any) (json.RawMessage, error) {
	return c.passthrough(ctx, "update pin", http.MethodPut, fmt.Sprintf("/inspiration/pins/%d", pinID), token, updates)
}

// DeletePin removes a pin.
func (c *Client) DeletePin(ctx context.Context, token string, pinID int64) (json.RawMessage, error) {
	return c.passthrough(ctx, "delete pin", http.MethodDelete, fmt.Sprintf("/inspiration/pins/%d", pinID), token, nil)
}

// LinkPin associates a pin with other remote entities.
func (c *Client) LinkPin(ctx context.Context, token string, pinID int64, links []pin.Link) (json.RawMessage, error) {
	body := map[string][]pin.Link{"links": links}
	return c.passthrough(ctx, "link pin", http.MethodPost, fmt.Sprintf("/inspiration/pins/%d/link", pinID), token, body)
}

// searchEndpoints maps a search type to its endpoint; unknown types fall back
// to the combined search.
var searchEndpoints = map[string]string{
	"styles":     "/styles",
	"components": "/components",
	"suppliers":  "/suppliers",
	"all":        "/search",
}

// SearchItems queries remote entities by free text.
func (c *Client) SearchItems(ctx context.Context, token, query, itemType string) (json.RawMessage, error) {
	endpoint, ok := searchEndpoints[itemType]
	if !ok {
		endpoint = searchEndpoints["all"]
	}
	path := endpoint + "?search=" + url.QueryEscape(query)
	return c.passthrough(ctx, "search", http.MethodGet, path, token, nil)
}

// GetPreferences fetches the user's preferences.
func (c *Client) GetPreferences(ctx context.Context, token string) (json.RawMessage, error) {
	return c.passthrough(ctx, "get preferences", http.MethodGet, "/user/preferences", token, nil)
}

// UpdatePreferences stores the user's preferences.
func (c *Client) UpdatePreferences(ctx context.Context, token string, prefs any) (json.RawMessage, error) {
	return c.passthrough(ctx, "update preferences", http.MethodPut, "/user/preferences", token, prefs)
}
