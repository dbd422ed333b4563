package player

import (
	"sync"

	"github.com/tkodaira/melodeon/internal/domain/track"
)

// Store holds the playback state with thread-safe access.
//
// Invariants maintained by every mutator:
//   - 0 <= currentIndex < len(queue) whenever the queue is non-empty
//   - currentIndex == -1, playing == false whenever the queue is empty
//   - the current track is always derived from queue[currentIndex], never
//     stored separately
//   - the repeat-once flag resets whenever currentIndex changes
type Store struct {
	mu sync.RWMutex

	queue        []track.Track
	currentIndex int
	playing      bool
	shuffle      bool
	repeatMode   RepeatMode
	volume       float64
	muted        bool
	resumeAt     float64

	// repeatOnceUsed is the transient per-track-play counter: set once the
	// RepeatOneOnce extra playthrough has been spent for the current index.
	repeatOnceUsed bool
}

// NewStore creates an empty store with default settings.
func NewStore() *Store {
	return &Store{
		queue:        []track.Track{},
		currentIndex: -1,
		volume:       1,
		repeatMode:   RepeatList,
	}
}

// View returns a consistent copy of the full state.
func (s *Store) View() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := make([]track.Track, len(s.queue))
	copy(queue, s.queue)
	return State{
		Queue:        queue,
		CurrentIndex: s.currentIndex,
		Playing:      s.playing,
		Shuffle:      s.shuffle,
		RepeatMode:   s.repeatMode,
		Volume:       s.volume,
		Muted:        s.muted,
	}
}

// Len returns the queue length.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue)
}

// CurrentIndex returns the current index, or -1 when the queue is empty.
func (s *Store) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// Current returns the current track.
func (s *Store) Current() (track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentIndex < 0 || s.currentIndex >= len(s.queue) {
		return track.Track{}, false
	}
	return s.queue[s.currentIndex], true
}

// TrackAt returns the track at index i.
func (s *Store) TrackAt(i int) (track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i < 0 || i >= len(s.queue) {
		return track.Track{}, false
	}
	return s.queue[i], true
}

// Queue returns a copy of the queued tracks.
func (s *Store) Queue() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]track.Track, len(s.queue))
	copy(result, s.queue)
	return result
}

// Playing returns the playing flag.
func (s *Store) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying sets the playing flag. Forced to false while the queue is empty.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.playing = false
		return
	}
	s.playing = playing
}

// SetQueue atomically replaces the queue, current index and playing flag.
// An empty queue resets to the idle state. A non-empty queue clamps index
// into bounds.
func (s *Store) SetQueue(tracks []track.Track, index int, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = make([]track.Track, len(tracks))
	copy(s.queue, tracks)

	if len(s.queue) == 0 {
		s.currentIndex = -1
		s.playing = false
	} else {
		s.currentIndex = clampIndex(index, len(s.queue))
		s.playing = playing
	}
	s.repeatOnceUsed = false
	s.resumeAt = 0
}

// Append adds tracks to the end of the queue without touching the current
// index or playing flag.
func (s *Store) Append(tracks []track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, tracks...)
}

// SetIndex moves the current index (clamped) and sets the playing flag.
// No-op when the queue is empty.
func (s *Store) SetIndex(index int, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}
	clamped := clampIndex(index, len(s.queue))
	if clamped != s.currentIndex {
		s.repeatOnceUsed = false
		s.resumeAt = 0
	}
	s.currentIndex = clamped
	s.playing = playing
}

// Shuffle returns the shuffle flag.
func (s *Store) Shuffle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuffle
}

// SetShuffle sets the shuffle flag.
func (s *Store) SetShuffle(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = enabled
}

// RepeatMode returns the repeat mode.
func (s *Store) RepeatMode() RepeatMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repeatMode
}

// SetRepeatMode sets the repeat mode and resets the repeat-once counter.
func (s *Store) SetRepeatMode(mode RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeatMode = mode
	s.repeatOnceUsed = false
}

// ConsumeRepeatOnce spends the one extra playthrough granted by
// RepeatOneOnce. Returns true the first time it is called for the current
// index, false afterwards.
func (s *Store) ConsumeRepeatOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repeatOnceUsed {
		return false
	}
	s.repeatOnceUsed = true
	return true
}

// Volume returns the volume.
func (s *Store) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Store) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	s.volume = v
}

// Muted returns the muted flag.
func (s *Store) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// SetMuted sets the muted flag.
func (s *Store) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// ResumeAt returns the saved playback offset in seconds.
func (s *Store) ResumeAt() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resumeAt
}

// SetResumeAt stores the playback offset in seconds.
func (s *Store) SetResumeAt(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	s.resumeAt = seconds
}

// Snapshot builds the durable subset of the state. The playing flag is
// deliberately excluded: playback never auto-resumes after a restore.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := make([]track.Track, len(s.queue))
	copy(queue, s.queue)
	return Snapshot{
		Queue:        queue,
		CurrentIndex: s.currentIndex,
		Shuffle:      s.shuffle,
		RepeatMode:   s.repeatMode,
		Volume:       s.volume,
		Muted:        s.muted,
		ResumeAt:     s.resumeAt,
	}
}

// Restore installs a snapshot. Playing is always false afterwards.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = track.Compact(snap.Queue)
	if len(s.queue) == 0 {
		s.currentIndex = -1
	} else {
		s.currentIndex = clampIndex(snap.CurrentIndex, len(s.queue))
	}
	s.playing = false
	s.shuffle = snap.Shuffle
	s.repeatMode = snap.RepeatMode
	s.volume = snap.Volume
	if s.volume < 0 {
		s.volume = 0
	} else if s.volume > 1 {
		s.volume = 1
	}
	s.muted = snap.Muted
	s.resumeAt = snap.ResumeAt
	if s.resumeAt < 0 {
		s.resumeAt = 0
	}
	s.repeatOnceUsed = false
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	return i
}
