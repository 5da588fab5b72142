package api

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadServer(t *testing.T, onUpload func(r *http.Request, file []byte, section string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/upload":
			require.NoError(t, r.ParseMultipartForm(10<<20))
			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			raw, err := io.ReadAll(f)
			require.NoError(t, err)
			onUpload(r, raw, r.FormValue("section"))
			w.Write([]byte(`{"file_url":"https://cdn.example.com/u/capture.png"}`))
		case "/remote.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestUploadDecodesDataURI(t *testing.T) {
	var gotFile []byte
	var gotSection string
	srv := uploadServer(t, func(r *http.Request, file []byte, section string) {
		gotFile = file
		gotSection = section
	})
	defer srv.Close()

	payload := base64.StdEncoding.EncodeToString([]byte("inline-image"))
	c := NewClient(srv.URL)
	fileURL, err := c.UploadImage(context.Background(), "tok", ImageInput{
		DataURI: "data:image/png;base64," + payload,
	})
	require.NoError(t, err)

	assert.Equal(t, "inline-image", string(gotFile))
	assert.Equal(t, "inspiration-board", gotSection)
	assert.Equal(t, "https://cdn.example.com/u/capture.png", fileURL)
}

func TestUploadPassesRawBytesThrough(t *testing.T) {
	var gotFile []byte
	srv := uploadServer(t, func(r *http.Request, file []byte, section string) {
		gotFile = file
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.UploadImage(context.Background(), "tok", ImageInput{Raw: []byte{0x89, 0x50}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50}, gotFile)
}

func TestUploadFetchesRemoteURLFirst(t *testing.T) {
	var gotFile []byte
	var gotAuth string
	srv := uploadServer(t, func(r *http.Request, file []byte, section string) {
		gotFile = file
		gotAuth = r.Header.Get("Authorization")
	})
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.UploadImage(context.Background(), "tok", ImageInput{RemoteURL: srv.URL + "/remote.png"})
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(gotFile))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestUploadRejectsEmptyInput(t *testing.T) {
	c := NewClient("http://unused")
	_, err := c.UploadImage(context.Background(), "tok", ImageInput{})
	require.Error(t, err)
}

func TestUploadRejectsMalformedDataURI(t *testing.T) {
	c := NewClient("http://unused")
	_, err := c.UploadImage(context.Background(), "tok", ImageInput{DataURI: "not-a-data-uri"})
	require.Error(t, err)
}

func TestUploadCarriesDetectedContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotType = header.Header.Get("Content-Type")
		w.Write([]byte(`{"file_url":"https://cdn.example.com/u/capture.png"}`))
	}))
	defer srv.Close()

	payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	c := NewClient(srv.URL)
	_, err := c.UploadImage(context.Background(), "tok", ImageInput{
		DataURI: "data:image/jpeg;base64," + payload,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", gotType)
}

func TestDecodeDataURIContentType(t *testing.T) {
	raw, mimeType, err := decodeDataURI("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, "x", string(raw))
}
