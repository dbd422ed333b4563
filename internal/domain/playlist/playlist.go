// Package playlist provides the Playlist domain entity and its pure
// membership/order logic.
package playlist

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkodaira/melodeon/internal/apperr"
)

// Playlist represents a user-owned ordered list of song ids.
// OwnerID is immutable after creation. SongIDs may reference songs that have
// since disappeared from the catalog; stale ids are tolerated here and
// filtered when tracks are resolved at serve time.
type Playlist struct {
	ID        string
	Name      string
	OwnerID   string
	SongIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeName trims the name and rejects empty results.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validationf("playlist name must not be empty")
	}
	return name, nil
}

// New creates an empty playlist owned by ownerID.
// The name must be non-empty after trimming.
func New(name, ownerID string) (*Playlist, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		SongIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OwnedBy reports whether callerID is the playlist owner.
func (p *Playlist) OwnedBy(callerID string) bool {
	return p.OwnerID == callerID
}

// Contains reports whether songID is present.
func (p *Playlist) Contains(songID string) bool {
	for _, id := range p.SongIDs {
		if id == songID {
			return true
		}
	}
	return false
}

// Append adds songID to the end. Idempotent: appending an already-present id
// is a no-op and reports false.
func (p *Playlist) Append(songID string) bool {
	if p.Contains(songID) {
		return false
	}
	p.SongIDs = append(p.SongIDs, songID)
	return true
}

// Remove deletes every occurrence of songID. Reports whether anything was
// removed; removing an absent id is a no-op.
func (p *Playlist) Remove(songID string) bool {
	kept := p.SongIDs[:0]
	removed := false
	for _, id := range p.SongIDs {
		if id == songID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	p.SongIDs = kept
	return removed
}

// MergeOrder computes the effective new order for a reorder request.
// The result is: entries of requested that belong to current (in the given
// order), followed by the current entries omitted from requested, preserving
// their original relative order. A partial or stale request therefore never
// loses songs. Duplicate ids in the request consume matching occurrences in
// current, so surplus duplicates collapse away.
func MergeOrder(current, requested []string) []string {
	remaining := make(map[string]int, len(current))
	for _, id := range current {
		remaining[id]++
	}

	merged := make([]string, 0, len(current))
	for _, id := range requested {
		if remaining[id] > 0 {
			merged = append(merged, id)
			remaining[id]--
		}
	}
	for _, id := range current {
		if remaining[id] > 0 {
			merged = append(merged, id)
			remaining[id]--
		}
	}
	return merged
}
