package player

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/domain/track"
)

// Snapshot is the durable subset of the playback state. The playing flag is
// never persisted; playback does not auto-resume across restarts.
type Snapshot struct {
	Queue        []track.Track `json:"queue"`
	CurrentIndex int           `json:"current_index"`
	Shuffle      bool          `json:"shuffle"`
	RepeatMode   RepeatMode    `json:"repeat_mode"`
	Volume       float64       `json:"volume"`
	Muted        bool          `json:"muted"`
	ResumeAt     float64       `json:"resume_at"`
}

// DefaultSnapshot is the state used when nothing was persisted or the
// persisted file cannot be read.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Queue:        []track.Track{},
		CurrentIndex: -1,
		RepeatMode:   RepeatList,
		Volume:       1,
	}
}

// Adapter persists snapshots to a JSON file. Persistence is best-effort in
// both directions: Load degrades to defaults instead of failing, Save logs
// and drops write errors. Playback must never fail because snapshotting did.
type Adapter struct {
	path string
}

// NewAdapter creates an adapter writing to path.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// Load reads the snapshot. Absent or malformed files yield defaults.
func (a *Adapter) Load() Snapshot {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Debug().Msgf("persist: read failed, using defaults: %v", err)
		}
		return DefaultSnapshot()
	}

	snap := DefaultSnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		zlog.Warn().Msgf("persist: malformed snapshot, using defaults: %v", err)
		return DefaultSnapshot()
	}
	return sanitize(snap)
}

// Save writes the snapshot, swallowing failures.
func (a *Adapter) Save(snap Snapshot) {
	if err := a.write(snap); err != nil {
		zlog.Debug().Msgf("persist: write failed: %v", err)
	}
}

func (a *Adapter) write(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir")
		}
	}

	// Write-then-rename so a crash mid-write cannot corrupt the snapshot.
	tmp := a.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	if err := os.Rename(tmp, a.path); err != nil {
		return errors.Wrap(err, "replace snapshot")
	}
	return nil
}

// sanitize repairs a snapshot so a restore can never violate store
// invariants.
func sanitize(snap Snapshot) Snapshot {
	snap.Queue = track.Compact(snap.Queue)
	if len(snap.Queue) == 0 {
		snap.CurrentIndex = -1
	} else if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(snap.Queue) {
		snap.CurrentIndex = 0
	}
	if snap.Volume < 0 {
		snap.Volume = 0
	} else if snap.Volume > 1 {
		snap.Volume = 1
	}
	if snap.ResumeAt < 0 {
		snap.ResumeAt = 0
	}
	return snap
}
