// Package player implements the playback engine: the queue state store, the
// queue controller with its transition rules, the output driver boundary and
// snapshot persistence.
package player

import "github.com/tkodaira/melodeon/internal/domain/track"

// RepeatMode controls what happens when the current track ends.
type RepeatMode int

const (
	RepeatList    RepeatMode = iota // advance through the queue
	RepeatOneOnce                   // replay the current track exactly once, then advance
	RepeatOneLoop                   // replay the current track indefinitely
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatList:
		return "list"
	case RepeatOneOnce:
		return "one_once"
	case RepeatOneLoop:
		return "one_loop"
	default:
		return "unknown"
	}
}

// Cycle returns the next mode in the UI cycle order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatList:
		return RepeatOneOnce
	case RepeatOneOnce:
		return RepeatOneLoop
	default:
		return RepeatList
	}
}

// MarshalText implements encoding.TextMarshaler for snapshots.
func (m RepeatMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown values fall
// back to RepeatList so a stale snapshot never fails to load.
func (m *RepeatMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "one_once":
		*m = RepeatOneOnce
	case "one_loop":
		*m = RepeatOneLoop
	default:
		*m = RepeatList
	}
	return nil
}

// State is a consistent copy of the playback state handed to observers.
// CurrentIndex is -1 when the queue is empty.
type State struct {
	Queue        []track.Track
	CurrentIndex int
	Playing      bool
	Shuffle      bool
	RepeatMode   RepeatMode
	Volume       float64
	Muted        bool
}

// Current returns the track addressed by CurrentIndex.
func (s State) Current() (track.Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return track.Track{}, false
	}
	return s.Queue[s.CurrentIndex], true
}
