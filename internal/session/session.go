// SPDX-License-Identifier: MIT

// Package session holds the state of one operator session: the capture
// pipeline, the selected reference sample, the latest analysis, the two
// players and the operator controls. Every mutation goes through a method;
// control changes and new analyses request a redraw instead of drawing.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"prosody/internal/capture"
	applog "prosody/internal/log"
	"prosody/internal/metrics"
	"prosody/internal/playback"
	"prosody/internal/series"
	"prosody/internal/wav"
)

// ErrBusy is returned while an analysis request is outstanding.
var ErrBusy = errors.New("analysis in progress")

// Collaborator is the external analysis and sample service.
type Collaborator interface {
	ListSamples(ctx context.Context) ([]string, error)
	FetchSample(ctx context.Context, name string) ([]byte, error)
	Analyze(ctx context.Context, sample string, recording *wav.EncodedAudio) (*series.Analysis, error)
}

// Deps are the collaborators a Session is built from.
type Deps struct {
	Pipeline     *capture.Pipeline
	Collaborator Collaborator
	Reference    *playback.Player
	User         *playback.Player
	Metrics      *metrics.Metrics
	Controls     series.Controls
}

// Session is the state struct behind the operator UI.
type Session struct {
	pipeline *capture.Pipeline
	collab   Collaborator
	ref      *playback.Player
	user     *playback.Player
	clock    playback.Clock
	meter    *capture.Meter
	metrics  *metrics.Metrics

	busy atomic.Bool

	mu           sync.RWMutex
	controls     series.Controls
	samples      []string
	sample       string
	analysis     *series.Analysis
	userPlayable bool
	lastErr      error
	redraw       func()

	unsubscribe func()
}

// New creates a session. The pipeline's events feed the input meter and metrics.
func New(d Deps) *Session {
	s := &Session{
		pipeline: d.Pipeline,
		collab:   d.Collaborator,
		ref:      d.Reference,
		user:     d.User,
		clock:    playback.Clock{Reference: d.Reference, User: d.User},
		meter:    capture.NewMeter(),
		metrics:  d.Metrics,
		controls: d.Controls.Normalized(),
		redraw:   func() {},
	}
	s.unsubscribe = d.Pipeline.Subscribe(s.observe)
	return s
}

func (s *Session) observe(e capture.Event) {
	s.meter.Observe(e)
	switch e.Kind {
	case capture.EventBlock:
		s.metrics.RecordBlock(e.Samples)
	case capture.EventState:
		s.metrics.SetCapturing(e.To == capture.StateCapturing)
	}
}

// OnRedraw sets the function called when the charts need redrawing.
func (s *Session) OnRedraw(fn func()) {
	s.mu.Lock()
	s.redraw = fn
	s.mu.Unlock()
}

// RequestRedraw asks for the charts to be redrawn.
func (s *Session) RequestRedraw() {
	s.mu.RLock()
	fn := s.redraw
	s.mu.RUnlock()
	fn()
}

// LoadSamples fetches the sample list and selects the first sample.
func (s *Session) LoadSamples(ctx context.Context) ([]string, error) {
	files, err := s.collab.ListSamples(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("list samples: %w", err))
	}

	s.mu.Lock()
	s.samples = files
	s.mu.Unlock()
	applog.Infof("Session: %d reference samples available", len(files))

	if len(files) == 0 {
		return files, nil
	}
	return files, s.SelectSample(ctx, files[0])
}

// Samples returns the known sample names.
func (s *Session) Samples() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.samples...)
}

// Sample returns the selected sample name.
func (s *Session) Sample() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sample
}

// SelectSample switches the reference, disables user playback until the
// next recording, and analyzes the reference alone.
func (s *Session) SelectSample(ctx context.Context, name string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	s.sample = name
	s.userPlayable = false
	s.mu.Unlock()
	if err := s.user.Pause(); err != nil {
		applog.Warnf("Session: Error pausing user playback: %v", err)
	}

	data, err := s.collab.FetchSample(ctx, name)
	if err != nil {
		s.ref.Unload()
		applog.Warnf("Session: Reference audio for %q unavailable: %v", name, err)
	} else if err := s.ref.LoadWAV(data); err != nil {
		applog.Warnf("Session: Reference audio for %q not playable: %v", name, err)
	}

	return s.analyze(ctx, name, nil)
}

// CycleSample selects the sample delta steps away from the current one.
func (s *Session) CycleSample(ctx context.Context, delta int) error {
	s.mu.RLock()
	samples, current := s.samples, s.sample
	s.mu.RUnlock()
	if len(samples) == 0 {
		return nil
	}

	i := 0
	for j, name := range samples {
		if name == current {
			i = j
			break
		}
	}
	n := len(samples)
	return s.SelectSample(ctx, samples[((i+delta)%n+n)%n])
}

// Capturing reports whether a recording is in progress.
func (s *Session) Capturing() bool {
	return s.pipeline.State() == capture.StateCapturing
}

// ToggleRecord starts a recording, or stops the current one, loads it for
// playback and analyzes it against the selected sample. The busy flag is
// held from the stop through the analysis.
func (s *Session) ToggleRecord(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	if !s.Capturing() {
		if err := s.pipeline.Start(ctx); err != nil {
			return s.fail(err)
		}
		return nil
	}

	rec, err := s.pipeline.Stop()
	if rec == nil {
		return s.fail(err)
	}
	if err != nil {
		applog.Warnf("Session: Recording %s released with errors: %v", rec.ID, err)
	}
	s.metrics.RecordRecording(rec.Duration, rec.Overruns)

	if err := s.user.LoadWAV(rec.Audio.Data); err != nil {
		applog.Errorf("Session: Recording %s not playable: %v", rec.ID, err)
	}
	s.mu.Lock()
	s.userPlayable = true
	sample := s.sample
	s.mu.Unlock()

	return s.analyze(ctx, sample, &rec.Audio)
}

// Busy reports whether an analysis request is outstanding.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// analyze runs one request. The caller holds the busy flag. A failure
// clears the analysis; a success replaces it.
func (s *Session) analyze(ctx context.Context, sample string, rec *wav.EncodedAudio) error {
	a, err := s.collab.Analyze(ctx, sample, rec)

	s.mu.Lock()
	if err != nil {
		s.analysis = nil
		s.lastErr = err
	} else {
		s.analysis = a
		s.lastErr = nil
	}
	s.mu.Unlock()

	s.RequestRedraw()
	if err != nil {
		applog.Errorf("Session: Analysis of %q failed: %v", sample, err)
	}
	return err
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	applog.Errorf("Session: %v", err)
	return err
}

// Err returns the last error surfaced to the operator.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Analysis returns the current analysis, or nil.
func (s *Session) Analysis() *series.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis
}

// Controls returns the current operator controls.
func (s *Session) Controls() series.Controls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controls
}

// SetTimeOffset sets the user time offset in seconds.
func (s *Session) SetTimeOffset(v float64) {
	s.setControls(func(c *series.Controls) { c.TimeOffset = v })
}

// SetPitchMultiplier sets the user pitch multiplier.
func (s *Session) SetPitchMultiplier(v float64) {
	s.setControls(func(c *series.Controls) { c.PitchMultiplier = v })
}

// SetIntensityOffset sets the user intensity offset in dB.
func (s *Session) SetIntensityOffset(v float64) {
	s.setControls(func(c *series.Controls) { c.IntensityOffset = v })
}

func (s *Session) setControls(update func(*series.Controls)) {
	s.mu.Lock()
	update(&s.controls)
	s.controls = s.controls.Normalized()
	s.mu.Unlock()
	s.RequestRedraw()
}

// UserPlayable reports whether the user recording may be played.
func (s *Session) UserPlayable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userPlayable
}

// PlayReference plays the reference sample.
func (s *Session) PlayReference() error {
	return s.ref.Play()
}

// PlayUser plays the latest recording.
func (s *Session) PlayUser() error {
	if !s.UserPlayable() {
		return playback.ErrNoMedia
	}
	return s.user.Play()
}

// Pause pauses both players.
func (s *Session) Pause() error {
	return errors.Join(s.ref.Pause(), s.user.Pause())
}

// Playing reports whether either player is playing.
func (s *Session) Playing() bool {
	return s.clock.Playing()
}

// Cursor returns the playback cursor time, if any.
func (s *Session) Cursor() (float64, bool) {
	return s.clock.Now(s.Controls().TimeOffset)
}

// Charts builds the chart series for the current analysis and controls.
func (s *Session) Charts() series.Charts {
	s.mu.RLock()
	a, c := s.analysis, s.controls
	s.mu.RUnlock()
	return series.Build(a, c)
}

// Meter returns the input level meter.
func (s *Session) Meter() *capture.Meter {
	return s.meter
}

// Vowel returns the reference vowel under the cursor.
func (s *Session) Vowel() (string, bool) {
	t, ok := s.Cursor()
	a := s.Analysis()
	if !ok || a == nil || a.Reference == nil {
		return "", false
	}
	return a.Reference.VowelAt(t)
}

// Close stops any recording and releases the players.
func (s *Session) Close() error {
	var errs []error
	if s.Capturing() {
		if _, err := s.pipeline.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.ref.Close(), s.user.Close())
	s.unsubscribe()
	return errors.Join(errs...)
}
