package player

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/tkodaira/melodeon/internal/domain/track"
)

// BeepDriver plays tracks through the system speaker using beep. One driver
// owns the one output device; Load swaps the decoded source before any Play.
type BeepDriver struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	vol         *effects.Volume

	trackID string
	onEnd   func(trackID string)

	// drained flips once the mixer pulls the source dry. The mixer drops
	// drained streamers, so the next Play must re-submit instead of just
	// unpausing. Atomic: the end callback runs under the speaker lock and
	// must not take d.mu.
	drained atomic.Bool

	httpClient *http.Client
}

// NewBeepDriver creates a speaker-backed driver. The speaker itself is
// initialized lazily on the first Load, using that track's sample rate as
// the fixed output rate.
func NewBeepDriver() *BeepDriver {
	return &BeepDriver{
		sampleRate: beep.SampleRate(44100),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// OnEnd installs the natural end-of-track callback.
func (d *BeepDriver) OnEnd(fn func(trackID string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEnd = fn
}

// Load fetches and decodes the track's audio, then swaps it in as the
// speaker source, paused at position 0.
func (d *BeepDriver) Load(t track.Track) error {
	data, err := d.fetch(t.AudioURL)
	if err != nil {
		return errors.Wrapf(err, "fetch audio: %s", t.AudioURL)
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return errors.Wrap(err, "decode audio")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		if err := speaker.Init(d.sampleRate, d.sampleRate.N(time.Second/10)); err != nil {
			_ = streamer.Close()
			return errors.Wrap(err, "init speaker")
		}
		d.initialized = true
	}

	d.unloadLocked()

	d.streamer = streamer
	d.format = format
	d.trackID = t.ID

	var src beep.Streamer = streamer
	if format.SampleRate != d.sampleRate {
		src = beep.Resample(4, format.SampleRate, d.sampleRate, streamer)
	}
	d.ctrl = &beep.Ctrl{Streamer: src, Paused: true}
	d.vol = &effects.Volume{Streamer: d.ctrl, Base: 2}

	d.submitLocked()
	return nil
}

// submitLocked hands the built source chain to the speaker. Needs d.mu held.
func (d *BeepDriver) submitLocked() {
	endedID := d.trackID
	d.drained.Store(false)
	speaker.Play(beep.Seq(d.vol, beep.Callback(func() {
		d.drained.Store(true)
		// Separate goroutine: the controller re-enters the driver while
		// advancing, and the callback runs under the speaker lock.
		go d.reportEnd(endedID)
	})))
}

func (d *BeepDriver) reportEnd(endedID string) {
	d.mu.Lock()
	fn := d.onEnd
	d.mu.Unlock()
	if fn != nil {
		fn(endedID)
	}
}

// Play resumes output of the loaded source. A source that already drained
// was dropped by the mixer, so it is re-submitted; callers seek before
// replaying, restarts are not silently stuck at the end.
func (d *BeepDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return nil
	}
	if d.drained.Load() {
		d.submitLocked()
	}
	speaker.Lock()
	d.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause suspends output, keeping the position.
func (d *BeepDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl == nil {
		return nil
	}
	speaker.Lock()
	d.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// SeekTo moves the position to the given offset in seconds.
func (d *BeepDriver) SeekTo(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()

	samples := d.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if samples < 0 {
		samples = 0
	}
	if total := d.streamer.Len(); samples > total {
		samples = total
	}
	return errors.Wrap(d.streamer.Seek(samples), "seek")
}

// SetVolume applies volume and mute. Volume 0..1 maps onto an exponential
// gain curve; 0 and muted are silence.
func (d *BeepDriver) SetVolume(volume float64, muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vol == nil {
		return nil
	}
	speaker.Lock()
	d.vol.Silent = muted || volume <= 0
	if volume > 0 {
		d.vol.Volume = math.Log2(volume) * 2
	}
	speaker.Unlock()
	return nil
}

// Position returns the elapsed time of the loaded source in seconds.
func (d *BeepDriver) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := d.streamer.Position()
	speaker.Unlock()
	return d.format.SampleRate.D(pos).Seconds()
}

// Duration returns the total duration of the loaded source in seconds.
func (d *BeepDriver) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return 0
	}
	return d.format.SampleRate.D(d.streamer.Len()).Seconds()
}

// Close releases the loaded source.
func (d *BeepDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unloadLocked()
	return nil
}

func (d *BeepDriver) unloadLocked() {
	if d.ctrl != nil && d.initialized {
		speaker.Clear()
	}
	if d.streamer != nil {
		_ = d.streamer.Close()
		d.streamer = nil
	}
	d.ctrl = nil
	d.vol = nil
	d.trackID = ""
}

// fetch reads the audio body from an http(s) URL or a local file path.
func (d *BeepDriver) fetch(url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		resp, err := d.httpClient.Get(url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(url)
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser for the decoder.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
