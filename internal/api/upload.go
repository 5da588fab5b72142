package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// uploadSection is the storage section every clipped image lands in.
const uploadSection = "inspiration-board"

// ImageInput names the three accepted image forms: an inline data URI, raw
// bytes, or a remote URL. Exactly one field should be set; they are checked
// in that order.
type ImageInput struct {
	DataURI   string
	Raw       []byte
	RemoteURL string
}

// normalize reduces the input to a single binary payload plus content type.
func (in ImageInput) normalize(ctx context.Context, httpClient *http.Client) ([]byte, string, error) {
	switch {
	case in.DataURI != "":
		return decodeDataURI(in.DataURI)
	case len(in.Raw) > 0:
		return in.Raw, "application/octet-stream", nil
	case in.RemoteURL != "":
		return fetchImage(ctx, httpClient, in.RemoteURL)
	default:
		return nil, "", errors.New("empty image input")
	}
}

// decodeDataURI splits "data:<mime>;base64,<payload>" into bytes.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, found := strings.Cut(uri, ",")
	if !found || !strings.HasPrefix(meta, "data:") {
		return nil, "", fmt.Errorf("invalid data URI")
	}
	mimeType := strings.TrimPrefix(meta, "data:")
	mimeType = strings.TrimSuffix(mimeType, ";base64")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return raw, mimeType, nil
}

func fetchImage(ctx context.Context, httpClient *http.Client, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image fetch: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &OperationError{Op: "fetch image", Status: resp.StatusCode}
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return raw, contentType, nil
}

type uploadResponse struct {
	FileURL string `json:"file_url"`
}

// UploadImage normalizes the input into one binary payload and submits it as
// multipart form content. It returns the stored file's reference URL.
func (c *Client) UploadImage(ctx context.Context, token string, image ImageInput) (string, error) {
	const op = "upload image"

	payload, contentType, err := image.normalize(ctx, c.httpClient)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="capture.png"`)
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("%s: build form: %w", op, err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("%s: write form: %w", op, err)
	}
	if err := form.WriteField("section", uploadSection); err != nil {
		return "", fmt.Errorf("%s: write form: %w", op, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("%s: close form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/upload", &body)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header = c.headers(token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg remoteMessage
		_ = json.Unmarshal(raw, &msg)
		return "", &OperationError{Op: op, Status: resp.StatusCode, Message: msg.text()}
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}
	if decoded.FileURL == "" {
		return "", fmt.Errorf("%s: no file_url in response: %w", op, ErrMalformedResponse)
	}
	return decoded.FileURL, nil
}
