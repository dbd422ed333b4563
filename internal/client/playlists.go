// Package client provides the playlist API client used by UI frontends,
// including the optimistic local-apply/confirm-or-revert edit flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/track"
)

// Playlist mirrors the API's playlist representation.
type Playlist struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	OwnerID   string        `json:"owner_id"`
	Tracks    []track.Track `json:"tracks"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Client calls the playlist HTTP API with a bearer credential.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL authenticating with token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// List fetches all playlists owned by the caller.
func (c *Client) List(ctx context.Context) ([]Playlist, error) {
	var out struct {
		Playlists []Playlist `json:"playlists"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/playlists", nil, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// Create creates a playlist with the given name.
func (c *Client) Create(ctx context.Context, name string) (Playlist, error) {
	var out Playlist
	err := c.do(ctx, http.MethodPost, "/api/playlists", map[string]any{"name": name}, &out)
	return out, err
}

// AddSong appends a song to the playlist.
func (c *Client) AddSong(ctx context.Context, playlistID, songID string) (Playlist, error) {
	var out Playlist
	path := fmt.Sprintf("/api/playlists/%s/songs", playlistID)
	err := c.do(ctx, http.MethodPost, path, map[string]any{"song_id": songID}, &out)
	return out, err
}

// RemoveSong removes a song from the playlist.
func (c *Client) RemoveSong(ctx context.Context, playlistID, songID string) (Playlist, error) {
	var out Playlist
	path := fmt.Sprintf("/api/playlists/%s/songs/%s", playlistID, songID)
	err := c.do(ctx, http.MethodDelete, path, nil, &out)
	return out, err
}

// Reorder installs a new song order.
func (c *Client) Reorder(ctx context.Context, playlistID string, songIDs []string) (Playlist, error) {
	var out Playlist
	path := fmt.Sprintf("/api/playlists/%s/order", playlistID)
	err := c.do(ctx, http.MethodPut, path, map[string]any{"song_ids": songIDs}, &out)
	return out, err
}

// Rename changes the playlist name.
func (c *Client) Rename(ctx context.Context, playlistID, name string) (Playlist, error) {
	var out Playlist
	path := fmt.Sprintf("/api/playlists/%s", playlistID)
	err := c.do(ctx, http.MethodPatch, path, map[string]any{"name": name}, &out)
	return out, err
}

// Delete removes the playlist.
func (c *Client) Delete(ctx context.Context, playlistID string) error {
	path := fmt.Sprintf("/api/playlists/%s", playlistID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transient(errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// statusError converts an API error response back into the shared taxonomy.
func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperr.Validationf("api: %s", msg)
	case http.StatusUnauthorized:
		return errors.Wrapf(apperr.ErrAuth, "api: %s", msg)
	case http.StatusForbidden:
		return apperr.Forbiddenf("api: %s", msg)
	case http.StatusNotFound:
		return apperr.NotFoundf("api: %s", msg)
	case http.StatusServiceUnavailable:
		return apperr.Transient(errors.Newf("api: %s", msg))
	default:
		return errors.Newf("api: %s", msg)
	}
}
