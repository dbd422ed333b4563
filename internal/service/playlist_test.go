package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/playlist"
	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/domain/user"
)

// mockStore is an in-memory Store. Reads hand out copies so tests observe
// only what the service explicitly wrote back.
type mockStore struct {
	songs     map[string]track.Track
	playlists map[string]*playlist.Playlist
	updates   int
}

func newMockStore() *mockStore {
	return &mockStore{
		songs:     map[string]track.Track{},
		playlists: map[string]*playlist.Playlist{},
	}
}

func (m *mockStore) addSong(id string) {
	m.songs[id] = track.Track{ID: id, Title: id, AudioURL: id + ".mp3"}
}

func (m *mockStore) addPlaylist(p playlist.Playlist) {
	m.playlists[p.ID] = clone(&p)
}

func clone(p *playlist.Playlist) *playlist.Playlist {
	cp := *p
	cp.SongIDs = append([]string{}, p.SongIDs...)
	return &cp
}

func (m *mockStore) GetSong(_ context.Context, id string) (track.Track, error) {
	t, ok := m.songs[id]
	if !ok {
		return track.Track{}, apperr.NotFoundf("song %s not found", id)
	}
	return t, nil
}

func (m *mockStore) ResolveTracks(_ context.Context, ids []string) ([]track.Track, error) {
	out := []track.Track{}
	for _, id := range ids {
		if t, ok := m.songs[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) GetPlaylist(_ context.Context, id string) (*playlist.Playlist, error) {
	p, ok := m.playlists[id]
	if !ok {
		return nil, apperr.NotFoundf("playlist %s not found", id)
	}
	return clone(p), nil
}

func (m *mockStore) ListPlaylistsByOwner(_ context.Context, ownerID string) ([]*playlist.Playlist, error) {
	out := []*playlist.Playlist{}
	for _, p := range m.playlists {
		if p.OwnerID == ownerID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *mockStore) CreatePlaylist(_ context.Context, p *playlist.Playlist) error {
	m.playlists[p.ID] = clone(p)
	return nil
}

func (m *mockStore) UpdatePlaylist(_ context.Context, p *playlist.Playlist) error {
	if _, ok := m.playlists[p.ID]; !ok {
		return apperr.NotFoundf("playlist %s not found", p.ID)
	}
	m.playlists[p.ID] = clone(p)
	m.updates++
	return nil
}

func (m *mockStore) DeletePlaylist(_ context.Context, id string) error {
	if _, ok := m.playlists[id]; !ok {
		return apperr.NotFoundf("playlist %s not found", id)
	}
	delete(m.playlists, id)
	return nil
}

var (
	alice  = user.Identity{ID: "alice", EmailVerified: true}
	bob    = user.Identity{ID: "bob", EmailVerified: true}
	nobody = user.Identity{}
)

func fixture() (*PlaylistService, *mockStore) {
	store := newMockStore()
	store.addSong("s1")
	store.addSong("s2")
	store.addSong("s3")
	store.addPlaylist(playlist.Playlist{
		ID: "p1", Name: "Alice's", OwnerID: "alice", SongIDs: []string{"s1", "s2"},
	})
	return NewPlaylistService(store), store
}

func TestPlaylistService_Create(t *testing.T) {
	svc, store := fixture()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		r, err := svc.Create(ctx, alice, "  Road Trip ")
		require.NoError(t, err)
		assert.Equal(t, "Road Trip", r.Playlist.Name)
		assert.Equal(t, "alice", r.Playlist.OwnerID)
		assert.Empty(t, r.Tracks)
		assert.Contains(t, store.playlists, r.Playlist.ID)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := svc.Create(ctx, alice, "   ")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.Create(ctx, nobody, "x")
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})
}

func TestPlaylistService_AddSong(t *testing.T) {
	ctx := context.Background()

	t.Run("appends and resolves", func(t *testing.T) {
		svc, _ := fixture()
		r, err := svc.AddSong(ctx, alice, "p1", "s3")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, r.Playlist.SongIDs)
		assert.Equal(t, []string{"s1", "s2", "s3"}, track.IDs(r.Tracks))
	})

	t.Run("duplicate add is a no-op without a write", func(t *testing.T) {
		svc, store := fixture()
		r, err := svc.AddSong(ctx, alice, "p1", "s1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, r.Playlist.SongIDs)
		assert.Zero(t, store.updates)
	})

	t.Run("unknown song", func(t *testing.T) {
		svc, store := fixture()
		_, err := svc.AddSong(ctx, alice, "p1", "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, []string{"s1", "s2"}, store.playlists["p1"].SongIDs)
	})

	t.Run("wrong owner leaves the playlist untouched", func(t *testing.T) {
		svc, store := fixture()
		_, err := svc.AddSong(ctx, bob, "p1", "s3")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Equal(t, []string{"s1", "s2"}, store.playlists["p1"].SongIDs)
	})

	t.Run("missing playlist is not found, not forbidden", func(t *testing.T) {
		svc, _ := fixture()
		_, err := svc.AddSong(ctx, alice, "ghost", "s1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NotErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestPlaylistService_RemoveSong(t *testing.T) {
	svc, store := fixture()
	ctx := context.Background()

	r, err := svc.RemoveSong(ctx, alice, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, r.Playlist.SongIDs)

	// Removing again converges to the same state.
	r, err = svc.RemoveSong(ctx, alice, "p1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, r.Playlist.SongIDs)
	assert.Equal(t, 1, store.updates)
}

func TestPlaylistService_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("full permutation", func(t *testing.T) {
		svc, _ := fixture()
		r, err := svc.Reorder(ctx, alice, "p1", []string{"s2", "s1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s1"}, r.Playlist.SongIDs)
	})

	t.Run("partial request never loses songs", func(t *testing.T) {
		svc, _ := fixture()
		_, err := svc.AddSong(ctx, alice, "p1", "s3")
		require.NoError(t, err)

		r, err := svc.Reorder(ctx, alice, "p1", []string{"s3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s3", "s1", "s2"}, r.Playlist.SongIDs)
	})

	t.Run("stale ids dropped", func(t *testing.T) {
		svc, _ := fixture()
		r, err := svc.Reorder(ctx, alice, "p1", []string{"zz", "s2", "s1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s1"}, r.Playlist.SongIDs)
	})
}

func TestPlaylistService_Rename(t *testing.T) {
	svc, _ := fixture()
	ctx := context.Background()

	r, err := svc.Rename(ctx, alice, "p1", " Evening ")
	require.NoError(t, err)
	assert.Equal(t, "Evening", r.Playlist.Name)

	_, err = svc.Rename(ctx, alice, "p1", "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPlaylistService_Delete(t *testing.T) {
	svc, store := fixture()
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, alice, "p1"))
	assert.NotContains(t, store.playlists, "p1")

	err := svc.Delete(ctx, alice, "p1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaylistService_List(t *testing.T) {
	svc, store := fixture()
	ctx := context.Background()
	store.addPlaylist(playlist.Playlist{ID: "p2", Name: "Bob's", OwnerID: "bob"})

	lists, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "p1", lists[0].Playlist.ID)
	assert.Equal(t, []string{"s1", "s2"}, track.IDs(lists[0].Tracks))

	_, err = svc.List(ctx, nobody)
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestPlaylistService_ResolveFiltersStaleSongs(t *testing.T) {
	svc, store := fixture()
	ctx := context.Background()
	store.playlists["p1"].SongIDs = []string{"s1", "gone", "s2"}

	lists, err := svc.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, lists, 1)

	// The stored ids keep the stale entry; only the resolved view filters it.
	assert.Equal(t, []string{"s1", "gone", "s2"}, lists[0].Playlist.SongIDs)
	assert.Equal(t, []string{"s1", "s2"}, track.IDs(lists[0].Tracks))
}
