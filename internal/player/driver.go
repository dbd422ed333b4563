package player

import "github.com/tkodaira/melodeon/internal/domain/track"

// Driver abstracts the single audio output device.
//
// Contract:
//   - Load fully swaps the source before any subsequent Play takes effect.
//   - Play produces output even when the current source already played to
//     the end; implementations re-attach a drained source to the device.
//     The controller seeks before replaying, so a restart is seek-then-play.
//   - Position/Duration are read-only observations for the UI; they never
//     mutate controller state.
//   - End-of-track is reported through the callback installed with OnEnd,
//     carrying the id of the track that ended so the controller can discard
//     stale reports.
type Driver interface {
	// Load swaps the output source to t, leaving the device paused at 0.
	Load(t track.Track) error
	// Play starts or resumes output of the loaded source.
	Play() error
	// Pause suspends output, keeping the position.
	Pause() error
	// SeekTo moves the position to the given offset in seconds.
	SeekTo(seconds float64) error
	// SetVolume applies volume (0..1) and mute to the device.
	SetVolume(volume float64, muted bool) error
	// Position returns the elapsed time of the loaded source in seconds.
	Position() float64
	// Duration returns the total duration of the loaded source in seconds.
	Duration() float64
	// OnEnd installs the natural end-of-track callback.
	OnEnd(fn func(trackID string))
	// Close releases the device.
	Close() error
}
