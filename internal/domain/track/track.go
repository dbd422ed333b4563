// Package track provides the Track value type.
package track

import "github.com/samber/lo"

// Track describes a playable song as served by the catalog.
// Fields are never mutated by the player; consumers hold references only.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	AudioURL string  `json:"audio_url"`
	CoverURL string  `json:"cover_url,omitempty"`
	Duration float64 `json:"duration"` // seconds
}

// IsZero reports whether the track carries no usable identity.
func (t Track) IsZero() bool {
	return t.ID == "" && t.AudioURL == ""
}

// Compact returns tracks with zero-value entries removed. The catalog is
// trusted for everything else; the player only null-filters.
func Compact(tracks []Track) []Track {
	return lo.Filter(tracks, func(t Track, _ int) bool {
		return !t.IsZero()
	})
}

// IDs returns the track ids in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
