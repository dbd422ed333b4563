package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/track"
)

// stubAPI is a scripted playlist API. Each handler key is "METHOD /path".
type stubAPI struct {
	t        *testing.T
	handlers map[string]http.HandlerFunc
	requests []string
}

func newStubAPI(t *testing.T) (*stubAPI, *Client) {
	t.Helper()
	stub := &stubAPI{t: t, handlers: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, New(srv.URL, "token")
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	s.requests = append(s.requests, key)
	h, ok := s.handlers[key]
	if !ok {
		s.t.Errorf("unexpected request: %s", key)
		w.WriteHeader(http.StatusTeapot)
		return
	}
	h(w, r)
}

func (s *stubAPI) respond(key string, status int, body any) {
	s.handlers[key] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func trk(id string) track.Track {
	return track.Track{ID: id, Title: id, AudioURL: id + ".mp3"}
}

func TestClient_List(t *testing.T) {
	stub, c := newStubAPI(t)
	stub.respond("GET /api/playlists", http.StatusOK, map[string]any{
		"playlists": []Playlist{{ID: "p1", Name: "Mine", Tracks: []track.Track{trk("s1")}}},
	})

	lists, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "p1", lists[0].ID)
	assert.Equal(t, []string{"s1"}, track.IDs(lists[0].Tracks))
}

func TestClient_SendsBearerToken(t *testing.T) {
	stub, c := newStubAPI(t)
	stub.handlers["GET /api/playlists"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"playlists": []Playlist{}})
	}

	_, err := c.List(context.Background())
	require.NoError(t, err)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, apperr.ErrValidation},
		{http.StatusUnauthorized, apperr.ErrAuth},
		{http.StatusForbidden, apperr.ErrForbidden},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusServiceUnavailable, apperr.ErrTransientIO},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			stub, c := newStubAPI(t)
			stub.respond("DELETE /api/playlists/p1", tt.status, map[string]string{"error": "nope"})

			err := c.Delete(context.Background(), "p1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOptimisticList_ConfirmInstallsServerCopy(t *testing.T) {
	stub, c := newStubAPI(t)
	ctx := context.Background()

	stub.respond("GET /api/playlists", http.StatusOK, map[string]any{
		"playlists": []Playlist{{ID: "p1", Name: "Mine", Tracks: []track.Track{trk("s1")}}},
	})
	// The server resolves the real track, richer than the local guess.
	stub.respond("POST /api/playlists/p1/songs", http.StatusOK, Playlist{
		ID: "p1", Name: "Mine",
		Tracks: []track.Track{trk("s1"), {ID: "s2", Title: "Full Title", AudioURL: "s2.mp3"}},
	})

	o := NewOptimisticList(c)
	require.NoError(t, o.Sync(ctx))

	require.NoError(t, o.AddSong(ctx, "p1", trk("s2")))

	p, ok := o.Get("p1")
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "s2"}, track.IDs(p.Tracks))
	assert.Equal(t, "Full Title", p.Tracks[1].Title)
}

func TestOptimisticList_RevertsOnRejection(t *testing.T) {
	stub, c := newStubAPI(t)
	ctx := context.Background()

	stub.respond("GET /api/playlists", http.StatusOK, map[string]any{
		"playlists": []Playlist{{ID: "p1", Name: "Mine", Tracks: []track.Track{trk("s1"), trk("s2")}}},
	})
	stub.respond("DELETE /api/playlists/p1/songs/s1", http.StatusForbidden,
		map[string]string{"error": "not yours"})

	o := NewOptimisticList(c)
	require.NoError(t, o.Sync(ctx))

	err := o.RemoveSong(ctx, "p1", "s1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// The pre-image is back.
	p, ok := o.Get("p1")
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "s2"}, track.IDs(p.Tracks))
}

func TestOptimisticList_ReorderMirrorsServerMerge(t *testing.T) {
	stub, c := newStubAPI(t)
	ctx := context.Background()

	stub.respond("GET /api/playlists", http.StatusOK, map[string]any{
		"playlists": []Playlist{{
			ID: "p1", Tracks: []track.Track{trk("s1"), trk("s2"), trk("s3")},
		}},
	})

	// Confirmation returns what the merge rule produces for a partial request.
	want := []track.Track{trk("s3"), trk("s1"), trk("s2")}
	stub.handlers["PUT /api/playlists/p1/order"] = func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SongIDs []string `json:"song_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"s3"}, req.SongIDs)
		_ = json.NewEncoder(w).Encode(Playlist{ID: "p1", Tracks: want})
	}

	o := NewOptimisticList(c)
	require.NoError(t, o.Sync(ctx))

	require.NoError(t, o.Reorder(ctx, "p1", []string{"s3"}))

	p, _ := o.Get("p1")
	assert.Equal(t, []string{"s3", "s1", "s2"}, track.IDs(p.Tracks))
}
