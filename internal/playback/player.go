// SPDX-License-Identifier: MIT
package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"prosody/internal/capture"
	applog "prosody/internal/log"
	"prosody/internal/wav"
)

// ErrNoMedia is returned by Play when nothing is loaded.
var ErrNoMedia = errors.New("no media loaded")

// Media is a source with a native playback position.
type Media interface {
	Paused() bool
	CurrentTime() float64
}

// Output opens device streams that pull mono samples through fill.
type Output interface {
	OpenOutput(sampleRate float64, fill func(out []float32)) (capture.Stream, error)
}

// Player plays one decoded track through an Output. The fill callback runs
// on the audio thread and only touches the position and playing flags.
type Player struct {
	name   string
	output Output

	mu     sync.Mutex
	pcm    *wav.PCM
	stream capture.Stream

	position atomic.Int64 // frames
	playing  atomic.Bool
}

var _ Media = (*Player)(nil)

// NewPlayer creates an empty player. name prefixes its log lines.
func NewPlayer(name string, output Output) *Player {
	return &Player{name: name, output: output}
}

// Load replaces the track, stopping playback and rewinding.
func (p *Player) Load(pcm *wav.PCM) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.release()
	p.pcm = pcm
	p.position.Store(0)
}

// LoadWAV decodes a WAV file and loads it.
func (p *Player) LoadWAV(data []byte) error {
	pcm, err := wav.DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	p.Load(pcm)
	return nil
}

// Unload stops playback and drops the track.
func (p *Player) Unload() {
	p.Load(nil)
}

// Loaded reports whether a track is loaded.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pcm != nil
}

// Play starts playback from the current position, or from the start if the
// previous playback ran to the end. Play while playing is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pcm == nil || p.pcm.SampleRate <= 0 {
		return ErrNoMedia
	}
	if p.playing.Load() {
		return nil
	}
	p.release()

	samples := p.pcm.Samples
	if p.position.Load() >= int64(len(samples)) {
		p.position.Store(0)
	}

	stream, err := p.output.OpenOutput(float64(p.pcm.SampleRate), func(out []float32) {
		p.fill(samples, out)
	})
	if err != nil {
		return fmt.Errorf("%s: open output: %w", p.name, err)
	}

	p.playing.Store(true)
	if err := stream.Start(); err != nil {
		p.playing.Store(false)
		if cerr := stream.Close(); cerr != nil {
			applog.Warnf("Playback: %s: error closing stream: %v", p.name, cerr)
		}
		return fmt.Errorf("%s: start output: %w", p.name, err)
	}
	p.stream = stream
	applog.Debugf("Playback: %s started at frame %d", p.name, p.position.Load())
	return nil
}

// Pause stops playback and keeps the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.release()
}

// Close releases the output stream.
func (p *Player) Close() error {
	return p.Pause()
}

// Paused reports whether the player is not producing audio. A track that
// has played to its end is paused.
func (p *Player) Paused() bool {
	return !p.playing.Load()
}

// CurrentTime returns the playback position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	pcm := p.pcm
	p.mu.Unlock()
	if pcm == nil || pcm.SampleRate <= 0 {
		return 0
	}
	return float64(p.position.Load()) / float64(pcm.SampleRate)
}

// Duration returns the length of the loaded track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pcm == nil {
		return 0
	}
	return p.pcm.Duration()
}

// fill copies the next quantum into out and zero-pads past the end.
func (p *Player) fill(samples []float32, out []float32) {
	if !p.playing.Load() {
		clear(out)
		return
	}
	pos := p.position.Load()
	n := 0
	if pos < int64(len(samples)) {
		n = copy(out, samples[pos:])
	}
	clear(out[n:])
	p.position.Store(pos + int64(n))
	if n < len(out) {
		p.playing.Store(false)
	}
}

// release stops and closes the current stream. p.mu must be held.
func (p *Player) release() error {
	p.playing.Store(false)
	if p.stream == nil {
		return nil
	}
	stream := p.stream
	p.stream = nil

	var errs []error
	if err := stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop stream: %w", err))
	}
	if err := stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stream: %w", err))
	}
	return errors.Join(errs...)
}
