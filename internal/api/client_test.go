package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kobohq/kobo-clipper/internal/model/pin"
)

func TestHeadersAttachedToEveryCall(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetTenant(42, 7)
	_, err := c.ListBoards(context.Background(), "tok-abc")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-abc", got.Get("Authorization"))
	assert.Equal(t, "42", got.Get("X-Company-Id"))
	assert.Equal(t, "7", got.Get("X-Brand-Id"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestTenantDefaultsWhenUnset(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.SetTenant(0, 0)
	_, err := c.ListBoards(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, "1", got.Get("X-Company-Id"))
	assert.Equal(t, "1", got.Get("X-Brand-Id"))
}

func TestNonSuccessBecomesOperationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"board name taken"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreateBoard(context.Background(), "tok", map[string]string{"name": "x"})
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "create board", opErr.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, opErr.Status)
	assert.Equal(t, "board name taken", opErr.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestUnauthorizedIsMatchable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SavePin(context.Background(), "stale", pin.SaveRequest{ImageURL: "https://example.com/a.png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestLoginBuildsSessionFromExplicitSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"access_token": "tok-1",
			"token_type": "Bearer",
			"expires_in": 3600,
			"user": {"id": 9, "name": "Ada", "email": "ada@example.com",
			         "current_company_id": 3, "current_brand_id": 5}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	s, err := c.Login(context.Background(), pin.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, "Ada", s.Identity.DisplayName)
	assert.Equal(t, int64(3), s.CompanyID)
	assert.Equal(t, int64(5), s.BrandID)
}

func TestLoginWithoutTokenIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"id": 9}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), pin.Credentials{Email: "a", Password: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestLoginFailureCarriesRemoteReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), pin.Credentials{Email: "a", Password: "bad"})

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "invalid credentials", opErr.Message)
}

func TestBoardAndPinOperationsHitExpectedEndpoints(t *testing.T) {
	type call struct{ method, path string }
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{r.Method, r.URL.Path})
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.GetBoard(ctx, "tok", 4)
	require.NoError(t, err)
	_, err = c.UpdateBoard(ctx, "tok", 4, map[string]string{"name": "renamed"})
	require.NoError(t, err)
	_, err = c.ShareBoard(ctx, "tok", 4, map[string]bool{"public": true})
	require.NoError(t, err)
	_, err = c.GetPin(ctx, "tok", 9)
	require.NoError(t, err)
	_, err = c.UpdatePin(ctx, "tok", 9, map[string]string{"title": "t"})
	require.NoError(t, err)
	_, err = c.DeletePin(ctx, "tok", 9)
	require.NoError(t, err)
	_, err = c.LinkPin(ctx, "tok", 9, []pin.Link{{Type: "style", ID: 2}})
	require.NoError(t, err)

	assert.Equal(t, []call{
		{http.MethodGet, "/inspiration/boards/4"},
		{http.MethodPut, "/inspiration/boards/4"},
		{http.MethodPost, "/inspiration/boards/4/share"},
		{http.MethodGet, "/inspiration/pins/9"},
		{http.MethodPut, "/inspiration/pins/9"},
		{http.MethodDelete, "/inspiration/pins/9"},
		{http.MethodPost, "/inspiration/pins/9/link"},
	}, calls)
}

func TestCreatePinUploadsImageFirst(t *testing.T) {
	var paths []string
	var pinBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/files/upload" {
			w.Write([]byte(`{"file_url":"https://cdn.example.com/u/1.png"}`))
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pinBody))
		w.Write([]byte(`{"id":12}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreatePin(context.Background(), "tok", pin.Pin{Title: "Swatch"}, &ImageInput{Raw: []byte{0x89}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/files/upload", "/inspiration/pins"}, paths)
	assert.Equal(t, "https://cdn.example.com/u/1.png", pinBody["file_url"])
}

func TestSearchFallsBackToCombinedEndpoint(t *testing.T) {
	var path, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query().Get("search")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.SearchItems(context.Background(), "tok", "linen shirt", "unknown-type")
	require.NoError(t, err)
	assert.Equal(t, "/search", path)
	assert.Equal(t, "linen shirt", query)

	_, err = c.SearchItems(context.Background(), "tok", "buttons", "components")
	require.NoError(t, err)
	assert.Equal(t, "/components", path)
}
