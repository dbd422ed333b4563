package client

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/tkodaira/melodeon/internal/domain/track"
)

// OptimisticList keeps a local copy of the caller's playlists and applies
// edits in two phases: mutate the local copy immediately for a responsive
// UI, then confirm against the server, reverting to the captured pre-image
// when the server rejects the mutation.
type OptimisticList struct {
	mu     sync.Mutex
	client *Client
	lists  map[string]Playlist
}

// NewOptimisticList creates an empty optimistic view over client.
func NewOptimisticList(client *Client) *OptimisticList {
	return &OptimisticList{
		client: client,
		lists:  make(map[string]Playlist),
	}
}

// Sync replaces the local copy with the server state.
func (o *OptimisticList) Sync(ctx context.Context) error {
	lists, err := o.client.List(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lists = make(map[string]Playlist, len(lists))
	for _, p := range lists {
		o.lists[p.ID] = p
	}
	return nil
}

// Get returns the local copy of a playlist.
func (o *OptimisticList) Get(playlistID string) (Playlist, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.lists[playlistID]
	return p, ok
}

// AddSong optimistically appends t to the local playlist, then confirms with
// the server. On rejection the pre-image is restored and the error returned.
func (o *OptimisticList) AddSong(ctx context.Context, playlistID string, t track.Track) error {
	return o.apply(ctx, playlistID,
		func(p *Playlist) {
			p.Tracks = append(p.Tracks, t)
		},
		func(ctx context.Context) (Playlist, error) {
			return o.client.AddSong(ctx, playlistID, t.ID)
		})
}

// RemoveSong optimistically removes every occurrence of songID locally, then
// confirms with the server.
func (o *OptimisticList) RemoveSong(ctx context.Context, playlistID, songID string) error {
	return o.apply(ctx, playlistID,
		func(p *Playlist) {
			p.Tracks = lo.Filter(p.Tracks, func(t track.Track, _ int) bool {
				return t.ID != songID
			})
		},
		func(ctx context.Context) (Playlist, error) {
			return o.client.RemoveSong(ctx, playlistID, songID)
		})
}

// Reorder optimistically installs the new order locally, then confirms with
// the server. The local apply mirrors the server's merge rule so the UI
// matches what the confirmation will return.
func (o *OptimisticList) Reorder(ctx context.Context, playlistID string, songIDs []string) error {
	return o.apply(ctx, playlistID,
		func(p *Playlist) {
			byFirst := make(map[string]int)
			remaining := make(map[string]int, len(p.Tracks))
			for i, t := range p.Tracks {
				if _, ok := byFirst[t.ID]; !ok {
					byFirst[t.ID] = i
				}
				remaining[t.ID]++
			}
			merged := make([]track.Track, 0, len(p.Tracks))
			for _, id := range songIDs {
				if remaining[id] > 0 {
					merged = append(merged, p.Tracks[byFirst[id]])
					remaining[id]--
				}
			}
			for _, t := range p.Tracks {
				if remaining[t.ID] > 0 {
					merged = append(merged, t)
					remaining[t.ID]--
				}
			}
			p.Tracks = merged
		},
		func(ctx context.Context) (Playlist, error) {
			return o.client.Reorder(ctx, playlistID, songIDs)
		})
}

// apply runs the two-phase edit: capture pre-image, mutate locally, confirm
// remotely, and on failure restore the pre-image.
func (o *OptimisticList) apply(ctx context.Context, playlistID string, local func(*Playlist), confirm func(context.Context) (Playlist, error)) error {
	o.mu.Lock()
	pre, ok := o.lists[playlistID]
	if ok {
		updated := clonePlaylist(pre)
		local(&updated)
		o.lists[playlistID] = updated
	}
	o.mu.Unlock()

	confirmed, err := confirm(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		if ok {
			o.lists[playlistID] = pre
		}
		return err
	}
	o.lists[playlistID] = confirmed
	return nil
}

func clonePlaylist(p Playlist) Playlist {
	tracks := make([]track.Track, len(p.Tracks))
	copy(tracks, p.Tracks)
	p.Tracks = tracks
	return p
}
