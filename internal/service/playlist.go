// Package service implements the playlist sync service: owner-scoped,
// idempotent playlist mutations against the durable store.
package service

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/playlist"
	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/domain/user"
)

// Store is the durable document store the service mutates. Implementations
// must provide document-level atomicity per playlist; the service performs
// no retries and keeps no version tokens (last write wins).
type Store interface {
	GetSong(ctx context.Context, id string) (track.Track, error)
	ResolveTracks(ctx context.Context, ids []string) ([]track.Track, error)

	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]*playlist.Playlist, error)
	CreatePlaylist(ctx context.Context, p *playlist.Playlist) error
	UpdatePlaylist(ctx context.Context, p *playlist.Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
}

// Resolved is a playlist with its song ids resolved to catalog tracks in
// stored order. Stale ids are filtered at serve time, not on write.
type Resolved struct {
	Playlist *playlist.Playlist
	Tracks   []track.Track
}

// PlaylistService authorizes and persists playlist mutations. Every mutating
// operation is a single authorize-then-update round trip and fails closed.
type PlaylistService struct {
	store Store
}

// NewPlaylistService creates a playlist service over store.
func NewPlaylistService(store Store) *PlaylistService {
	return &PlaylistService{store: store}
}

// List returns all playlists owned by the caller, with resolved tracks.
func (s *PlaylistService) List(ctx context.Context, ident user.Identity) ([]Resolved, error) {
	if ident.IsZero() {
		return nil, apperr.ErrAuth
	}
	lists, err := s.store.ListPlaylistsByOwner(ctx, ident.ID)
	if err != nil {
		return nil, err
	}

	resolved := make([]Resolved, 0, len(lists))
	for _, p := range lists {
		r, err := s.resolve(ctx, p)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// Create creates an empty playlist owned by the caller. The name must be
// non-empty after trimming.
func (s *PlaylistService) Create(ctx context.Context, ident user.Identity, name string) (Resolved, error) {
	if ident.IsZero() {
		return Resolved{}, apperr.ErrAuth
	}
	p, err := playlist.New(name, ident.ID)
	if err != nil {
		return Resolved{}, err
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return Resolved{}, err
	}
	zlog.Debug().Msgf("playlist created: id=%s owner=%s", p.ID, p.OwnerID)
	return Resolved{Playlist: p, Tracks: []track.Track{}}, nil
}

// AddSong appends songID to the playlist. Adding an already-present song is
// a no-op, not an error.
func (s *PlaylistService) AddSong(ctx context.Context, ident user.Identity, playlistID, songID string) (Resolved, error) {
	p, err := s.authorize(ctx, ident, playlistID)
	if err != nil {
		return Resolved{}, err
	}
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return Resolved{}, err
	}

	if p.Append(songID) {
		p.UpdatedAt = time.Now()
		if err := s.store.UpdatePlaylist(ctx, p); err != nil {
			return Resolved{}, err
		}
	}
	return s.resolve(ctx, p)
}

// RemoveSong removes every occurrence of songID. Removing an absent song is
// a no-op.
func (s *PlaylistService) RemoveSong(ctx context.Context, ident user.Identity, playlistID, songID string) (Resolved, error) {
	p, err := s.authorize(ctx, ident, playlistID)
	if err != nil {
		return Resolved{}, err
	}

	if p.Remove(songID) {
		p.UpdatedAt = time.Now()
		if err := s.store.UpdatePlaylist(ctx, p); err != nil {
			return Resolved{}, err
		}
	}
	return s.resolve(ctx, p)
}

// Reorder installs a new song order. Requested ids outside the playlist are
// dropped; playlist songs missing from the request keep their relative order
// after the requested prefix, so a partial or stale request never loses
// data.
func (s *PlaylistService) Reorder(ctx context.Context, ident user.Identity, playlistID string, newOrderIDs []string) (Resolved, error) {
	p, err := s.authorize(ctx, ident, playlistID)
	if err != nil {
		return Resolved{}, err
	}

	p.SongIDs = playlist.MergeOrder(p.SongIDs, newOrderIDs)
	p.UpdatedAt = time.Now()
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return Resolved{}, err
	}
	return s.resolve(ctx, p)
}

// Rename changes the playlist name. The name must be non-empty after
// trimming.
func (s *PlaylistService) Rename(ctx context.Context, ident user.Identity, playlistID, name string) (Resolved, error) {
	p, err := s.authorize(ctx, ident, playlistID)
	if err != nil {
		return Resolved{}, err
	}

	normalized, err := playlist.NormalizeName(name)
	if err != nil {
		return Resolved{}, err
	}
	p.Name = normalized
	p.UpdatedAt = time.Now()
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return Resolved{}, err
	}
	return s.resolve(ctx, p)
}

// Delete removes the playlist immediately and irreversibly.
func (s *PlaylistService) Delete(ctx context.Context, ident user.Identity, playlistID string) error {
	if _, err := s.authorize(ctx, ident, playlistID); err != nil {
		return err
	}
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	zlog.Debug().Msgf("playlist deleted: id=%s owner=%s", playlistID, ident.ID)
	return nil
}

// authorize loads the playlist and enforces ownership. A missing playlist is
// NotFound; an existing playlist owned by someone else is Forbidden. The two
// are deliberately distinguishable.
func (s *PlaylistService) authorize(ctx context.Context, ident user.Identity, playlistID string) (*playlist.Playlist, error) {
	if ident.IsZero() {
		return nil, apperr.ErrAuth
	}
	p, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(ident.ID) {
		return nil, apperr.Forbiddenf("playlist %s is not owned by caller", playlistID)
	}
	return p, nil
}

func (s *PlaylistService) resolve(ctx context.Context, p *playlist.Playlist) (Resolved, error) {
	tracks, err := s.store.ResolveTracks(ctx, p.SongIDs)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{Playlist: p, Tracks: tracks}, nil
}
