package player

import (
	"math/rand"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/domain/track"
)

// Saver persists snapshots after controller mutations. Implementations are
// best-effort: Save never returns an error and must not block playback.
type Saver interface {
	Save(Snapshot)
}

// Controller is the sole mutation entry point for playback state. UI
// controls, keyboard shortcuts and driver callbacks all funnel through it,
// so a single mutex serializes queue transitions against end-of-track
// reports.
//
// Operations never fail for routine empty/invalid input; they silently
// no-op. Driver errors are logged and swallowed so queue state stays
// authoritative even when the device misbehaves.
type Controller struct {
	mu     sync.Mutex
	store  *Store
	driver Driver
	saver  Saver
	events chan Event

	// intn picks the shuffle index, swappable for deterministic tests.
	intn func(n int) int
}

// NewController wires a controller to its store, output driver and snapshot
// saver. saver may be nil. The driver's end-of-track callback is installed
// here.
func NewController(store *Store, driver Driver, saver Saver) *Controller {
	c := &Controller{
		store:  store,
		driver: driver,
		saver:  saver,
		events: make(chan Event, 16),
		intn:   rand.Intn,
	}
	driver.OnEnd(c.HandleTrackEnded)
	return c
}

// Events returns the observer event channel.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns a consistent copy of the playback state.
func (c *Controller) State() State {
	return c.store.View()
}

// ReplaceQueue discards the current queue and installs tracks, filtered of
// zero entries. A resulting empty list leaves prior state untouched.
// startIndex is clamped into bounds.
func (c *Controller) ReplaceQueue(tracks []track.Track, startIndex int, playNow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := track.Compact(tracks)
	if len(filtered) == 0 {
		return
	}

	c.store.SetQueue(filtered, startIndex, playNow)
	c.loadCurrentLocked(playNow)
	c.emitLocked(EventQueueChanged)
	c.emitLocked(EventTrackChanged)
	c.snapshotLocked()
}

// Enqueue appends tracks to the end of the queue. Enqueueing into an active
// queue never moves the current index or interrupts playback; playNow only
// applies when the queue was empty.
func (c *Controller) Enqueue(tracks []track.Track, playNow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := track.Compact(tracks)
	if len(filtered) == 0 {
		return
	}

	wasEmpty := c.store.Len() == 0
	c.store.Append(filtered)
	if wasEmpty {
		c.store.SetIndex(0, playNow)
		c.loadCurrentLocked(playNow)
		c.emitLocked(EventTrackChanged)
	}
	c.emitLocked(EventQueueChanged)
	c.snapshotLocked()
}

// PlayOne replaces the queue with a single track and plays it.
func (c *Controller) PlayOne(t track.Track) {
	c.ReplaceQueue([]track.Track{t}, 0, true)
}

// PlayListFrom replaces the queue with tracks and starts playing at
// startIndex.
func (c *Controller) PlayListFrom(tracks []track.Track, startIndex int) {
	c.ReplaceQueue(tracks, startIndex, true)
}

// Next advances manually. Manual skips always produce forward motion:
// repeat-one-loop is bypassed and the end of the queue wraps to the start.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(true)
}

// HandleTrackEnded is the driver's natural end-of-track report. Reports for
// anything but the still-current track are stale and ignored, which
// serializes device callbacks against user-initiated navigation.
func (c *Controller) HandleTrackEnded(endedID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.store.Current()
	if !ok || cur.ID != endedID {
		zlog.Debug().Msgf("player: ignoring stale track-end report: id=%s", endedID)
		return
	}
	c.advanceLocked(false)
}

// Previous moves to the prior track, wrapping from the first to the last,
// and starts playing.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.store.Len()
	if n == 0 {
		return
	}
	idx := (c.store.CurrentIndex() - 1 + n) % n
	c.store.SetIndex(idx, true)
	c.loadCurrentLocked(true)
	c.emitLocked(EventTrackChanged)
	c.snapshotLocked()
}

// RemoveAt deletes the track at index i.
func (c *Controller) RemoveAt(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.store.Queue()
	if i < 0 || i >= len(q) {
		return
	}
	cur := c.store.CurrentIndex()
	playing := c.store.Playing()

	next := make([]track.Track, 0, len(q)-1)
	next = append(next, q[:i]...)
	next = append(next, q[i+1:]...)

	switch {
	case len(next) == 0:
		c.store.SetQueue(nil, 0, false)
		c.pauseDeviceLocked()
		c.emitLocked(EventStopped)

	case i < cur:
		// Same logical track keeps playing one slot earlier.
		c.store.SetQueue(next, cur-1, playing)

	case i == cur:
		if i < len(next) {
			// The track that slid into this slot takes over.
			c.store.SetQueue(next, i, playing)
			c.loadCurrentLocked(playing)
		} else {
			// Removed the playing last track: stop on the new last.
			c.store.SetQueue(next, len(next)-1, false)
			c.loadCurrentLocked(false)
			c.emitLocked(EventStopped)
		}
		c.emitLocked(EventTrackChanged)

	default:
		c.store.SetQueue(next, cur, playing)
	}

	c.emitLocked(EventQueueChanged)
	c.snapshotLocked()
}

// Reorder moves one element from fromIndex to toIndex. The current index is
// recomputed so it keeps addressing the same track occurrence after the
// move, which matters when the same id appears twice.
func (c *Controller) Reorder(fromIndex, toIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.store.Queue()
	n := len(q)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n || fromIndex == toIndex {
		return
	}
	cur := c.store.CurrentIndex()
	playing := c.store.Playing()

	moved := q[fromIndex]
	q = append(q[:fromIndex], q[fromIndex+1:]...)
	q = append(q[:toIndex], append([]track.Track{moved}, q[toIndex:]...)...)

	newCur := cur
	switch {
	case cur == fromIndex:
		newCur = toIndex
	case fromIndex < cur && toIndex >= cur:
		newCur = cur - 1
	case fromIndex > cur && toIndex <= cur:
		newCur = cur + 1
	}

	c.store.SetQueue(q, newCur, playing)
	c.emitLocked(EventQueueChanged)
	c.snapshotLocked()
}

// TogglePlay flips play/pause for the current track. Bare playing toggles
// are not snapshotted, to bound write frequency.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Current(); !ok {
		return
	}
	playing := !c.store.Playing()
	c.store.SetPlaying(playing)
	if playing {
		c.playDeviceLocked()
	} else {
		c.pauseDeviceLocked()
	}
	c.emitLocked(EventStateChanged)
}

// SeekTo moves the playback position, clamped to the track duration, and
// records the offset for restore.
func (c *Controller) SeekTo(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Current(); !ok {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if d := c.driver.Duration(); d > 0 && seconds > d {
		seconds = d
	}
	if err := c.driver.SeekTo(seconds); err != nil {
		zlog.Warn().Msgf("player: seek failed: %v", err)
		return
	}
	c.store.SetResumeAt(seconds)
	c.snapshotLocked()
}

// SetVolume sets the volume (clamped to [0,1]) and applies it to the device
// immediately.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetVolume(v)
	c.applyVolumeLocked()
	c.emitLocked(EventStateChanged)
	c.snapshotLocked()
}

// SetMuted sets the mute flag and applies it to the device immediately.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetMuted(muted)
	c.applyVolumeLocked()
	c.emitLocked(EventStateChanged)
	c.snapshotLocked()
}

// ToggleShuffle flips shuffle mode.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetShuffle(!c.store.Shuffle())
	c.emitLocked(EventStateChanged)
	c.snapshotLocked()
}

// SetRepeatMode sets the repeat mode.
func (c *Controller) SetRepeatMode(mode RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetRepeatMode(mode)
	c.emitLocked(EventStateChanged)
	c.snapshotLocked()
}

// CycleRepeatMode advances list -> one_once -> one_loop -> list.
func (c *Controller) CycleRepeatMode() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetRepeatMode(c.store.RepeatMode().Cycle())
	c.emitLocked(EventStateChanged)
	c.snapshotLocked()
}

// RestoreSnapshot installs a previously saved snapshot. Playback stays
// paused: the device is loaded and positioned but never auto-played.
func (c *Controller) RestoreSnapshot(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Restore(snap)
	if cur, ok := c.store.Current(); ok {
		if err := c.driver.Load(cur); err != nil {
			zlog.Warn().Msgf("player: restore load failed: track=%s: %v", cur.ID, err)
		} else if at := c.store.ResumeAt(); at > 0 {
			if err := c.driver.SeekTo(at); err != nil {
				zlog.Debug().Msgf("player: restore seek failed: %v", err)
			}
		}
	}
	c.applyVolumeLocked()
	c.emitLocked(EventQueueChanged)
	c.emitLocked(EventTrackChanged)
	c.emitLocked(EventStateChanged)
}

// Close releases the driver and the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.driver.Close(); err != nil {
		zlog.Debug().Msgf("player: driver close: %v", err)
	}
	close(c.events)
}

// advanceLocked is the transition algorithm for track end and manual
// advance, evaluated in strict precedence order:
//
//  1. repeat-one-loop restarts the current track (natural end only)
//  2. an unspent repeat-once restarts the current track and spends the flag
//     (natural end only; a manual skip always moves forward)
//  3. an empty queue stops
//  4. shuffle picks a uniformly random other index (single-track queues:
//     manual replays, natural end stops)
//  5. sequential advances; at the last track a manual advance wraps to the
//     start while a natural end stops in place
func (c *Controller) advanceLocked(manual bool) {
	cur, ok := c.store.Current()
	if !ok {
		c.store.SetPlaying(false)
		c.pauseDeviceLocked()
		c.emitLocked(EventStopped)
		return
	}

	mode := c.store.RepeatMode()
	if !manual && mode == RepeatOneLoop {
		c.restartCurrentLocked()
		return
	}
	if !manual && mode == RepeatOneOnce && c.store.ConsumeRepeatOnce() {
		zlog.Debug().Msgf("player: repeat-once extra playthrough: track=%s", cur.ID)
		c.restartCurrentLocked()
		return
	}

	n := c.store.Len()
	if c.store.Shuffle() {
		if n == 1 {
			if manual {
				c.restartCurrentLocked()
			} else {
				c.stopLocked()
			}
			return
		}
		idx := c.store.CurrentIndex()
		pick := c.intn(n - 1)
		if pick >= idx {
			pick++
		}
		c.store.SetIndex(pick, true)
		c.loadCurrentLocked(true)
		c.emitLocked(EventTrackChanged)
		c.snapshotLocked()
		return
	}

	idx := c.store.CurrentIndex()
	switch {
	case idx < n-1:
		c.store.SetIndex(idx+1, true)
	case manual:
		c.store.SetIndex(0, true)
	default:
		// Natural end of the list halts autoplay, staying on the last track.
		c.stopLocked()
		return
	}
	c.loadCurrentLocked(true)
	c.emitLocked(EventTrackChanged)
	c.snapshotLocked()
}

// restartCurrentLocked replays the current track from time 0.
func (c *Controller) restartCurrentLocked() {
	if err := c.driver.SeekTo(0); err != nil {
		zlog.Debug().Msgf("player: restart seek failed: %v", err)
	}
	c.store.SetResumeAt(0)
	c.store.SetPlaying(true)
	c.playDeviceLocked()
	c.emitLocked(EventStateChanged)
}

func (c *Controller) stopLocked() {
	c.store.SetPlaying(false)
	c.pauseDeviceLocked()
	c.emitLocked(EventStopped)
}

// loadCurrentLocked swaps the device source to the current track. The swap
// fully precedes any play command.
func (c *Controller) loadCurrentLocked(play bool) {
	cur, ok := c.store.Current()
	if !ok {
		return
	}
	if err := c.driver.Load(cur); err != nil {
		zlog.Warn().Msgf("player: load failed: track=%s: %v", cur.ID, err)
		return
	}
	c.applyVolumeLocked()
	if play {
		c.playDeviceLocked()
	}
}

func (c *Controller) playDeviceLocked() {
	if err := c.driver.Play(); err != nil {
		zlog.Warn().Msgf("player: play failed: %v", err)
	}
}

func (c *Controller) pauseDeviceLocked() {
	if err := c.driver.Pause(); err != nil {
		zlog.Debug().Msgf("player: pause failed: %v", err)
	}
}

func (c *Controller) applyVolumeLocked() {
	if err := c.driver.SetVolume(c.store.Volume(), c.store.Muted()); err != nil {
		zlog.Debug().Msgf("player: volume apply failed: %v", err)
	}
}

// emitLocked sends an event without blocking.
func (c *Controller) emitLocked(t EventType) {
	state := c.store.View()
	e := Event{Type: t, State: state}
	if cur, ok := state.Current(); ok {
		e.Track = &cur
	}
	select {
	case c.events <- e:
	default:
		// Observer lagging, drop rather than stall a transition.
	}
}

func (c *Controller) snapshotLocked() {
	if c.saver == nil {
		return
	}
	c.saver.Save(c.store.Snapshot())
}
