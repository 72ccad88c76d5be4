// Package spotify is a minimal Web API client implementing the playback
// collaborators. Obtaining the access token is left to the user; the client
// only attaches it.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/pkg/media"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

var ErrNoToken = errors.New("no access token configured")

// TokenSource returns a bearer token for the next request.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns tok.
func StaticToken(tok string) TokenSource {
	return func(context.Context) (string, error) {
		if tok == "" {
			return "", ErrNoToken
		}
		return tok, nil
	}
}

type Client struct {
	base  string
	http  *http.Client
	token TokenSource
}

// NewClient creates a client. An empty base uses DefaultBaseURL and a nil
// hc uses a client with a 30 second timeout.
func NewClient(base string, hc *http.Client, token TokenSource) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc, token: token}
}

type devicesResponse struct {
	Devices []playback.Device `json:"devices"`
}

// Devices lists the user's Spotify Connect devices.
func (c *Client) Devices(ctx context.Context) ([]playback.Device, error) {
	var out devicesResponse
	if err := c.do(ctx, http.MethodGet, "/me/player/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

type transferBody struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

type playBody struct {
	URIs       []string `json:"uris,omitempty"`
	ContextURI string   `json:"context_uri,omitempty"`
	PositionMS *int     `json:"position_ms,omitempty"`
}

// Play transfers playback to deviceID without forcing it to start, then
// starts ref from the beginning.
func (c *Client) Play(ctx context.Context, deviceID string, ref media.Ref) error {
	if err := c.do(ctx, http.MethodPut, "/me/player", nil, transferBody{DeviceIDs: []string{deviceID}}, nil); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	body := playBody{}
	if ref.IsContainer() {
		body.ContextURI = ref.URI()
	} else {
		zero := 0
		body.URIs = []string{ref.URI()}
		body.PositionMS = &zero
	}
	q := url.Values{"device_id": {deviceID}}
	return c.do(ctx, http.MethodPut, "/me/player/play", q, body, nil)
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	tok, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", playback.ErrAuth, err)
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// statusError maps a failed response to one of the playback error kinds.
func statusError(code int, data []byte) error {
	var ae apiError
	_ = json.Unmarshal(data, &ae)
	msg := ae.Error.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", playback.ErrAuth, msg)
	case code == http.StatusNotFound && strings.Contains(strings.ToLower(msg), "device"):
		return fmt.Errorf("%w: %s", playback.ErrDeviceOffline, msg)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", playback.ErrNotFound, msg)
	case code == http.StatusBadGateway || code == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", playback.ErrDeviceOffline, msg)
	}
	return fmt.Errorf("spotify: %d %s", code, msg)
}

var _ playback.Service = (*Client)(nil)
