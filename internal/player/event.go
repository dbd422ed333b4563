package player

import "github.com/tkodaira/melodeon/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged EventType = iota // current track or index changed
	EventQueueChanged                  // queue contents changed
	EventStateChanged                  // playing/shuffle/repeat/volume/mute changed
	EventStopped                       // playback halted (end of queue or queue cleared)
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventStateChanged:
		return "state_changed"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is delivered to observers (the UI) after controller mutations.
// Observers only read; all mutation goes back through the controller.
type Event struct {
	Type  EventType
	Track *track.Track // current track, nil when the queue is empty
	State State
}
