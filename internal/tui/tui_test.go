// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"prosody/internal/capture"
	"prosody/internal/config"
	"prosody/internal/playback"
	"prosody/internal/series"
	"prosody/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	samples      []string
	sample       string
	capturing    bool
	busy         bool
	err          error
	toggleErr    error
	playUserErr  error
	playing      bool
	userPlayable bool
	controls     series.Controls
	cursor       float64
	vowel        string
	meter        *capture.Meter

	loads, toggles, refPlays, userPlays, pauses int
	cycles                                      []int
}

func newFakeController() *fakeController {
	return &fakeController{
		samples:  []string{"one.wav", "two.wav"},
		sample:   "one.wav",
		controls: series.DefaultControls(),
		meter:    capture.NewMeter(),
	}
}

func (f *fakeController) LoadSamples(ctx context.Context) ([]string, error) {
	f.loads++
	return f.samples, nil
}
func (f *fakeController) Samples() []string { return f.samples }
func (f *fakeController) Sample() string    { return f.sample }
func (f *fakeController) CycleSample(ctx context.Context, delta int) error {
	f.cycles = append(f.cycles, delta)
	return nil
}
func (f *fakeController) ToggleRecord(ctx context.Context) error {
	f.toggles++
	return f.toggleErr
}
func (f *fakeController) Capturing() bool { return f.capturing }
func (f *fakeController) Busy() bool      { return f.busy }
func (f *fakeController) Err() error      { return f.err }
func (f *fakeController) PlayReference() error {
	f.refPlays++
	return nil
}
func (f *fakeController) PlayUser() error {
	f.userPlays++
	return f.playUserErr
}
func (f *fakeController) Pause() error {
	f.pauses++
	return nil
}
func (f *fakeController) Playing() bool                { return f.playing }
func (f *fakeController) UserPlayable() bool           { return f.userPlayable }
func (f *fakeController) Controls() series.Controls    { return f.controls }
func (f *fakeController) SetTimeOffset(v float64)      { f.controls.TimeOffset = v }
func (f *fakeController) SetPitchMultiplier(v float64) { f.controls.PitchMultiplier = v }
func (f *fakeController) SetIntensityOffset(v float64) { f.controls.IntensityOffset = v }
func (f *fakeController) Cursor() (float64, bool)      { return f.cursor, f.playing }
func (f *fakeController) Vowel() (string, bool)        { return f.vowel, f.playing && f.vowel != "" }
func (f *fakeController) Meter() *capture.Meter        { return f.meter }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m SessionModel, msg tea.KeyMsg) (SessionModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(SessionModel)
	require.True(t, ok)
	return sm, cmd
}

// settle runs a blocking operation command and feeds its result back.
func settle(t *testing.T, m SessionModel, cmd tea.Cmd) SessionModel {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	res, ok := msg.(resultMsg)
	require.True(t, ok, "got %T", msg)
	next, _ := m.Update(res)
	return next.(SessionModel)
}

func newModel(ctrl Controller) SessionModel {
	return NewSessionModel(context.Background(), ctrl, config.NewConfig().Controls)
}

func TestSessionRecordToggle(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)

	m, cmd := press(t, m, runes("r"))
	m = settle(t, m, cmd)
	assert.Equal(t, 1, ctrl.toggles)
	assert.Equal(t, "record done", m.status)

	ctrl.capturing = true
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, "analyzing", m.pending)
	assert.Contains(t, m.View(), "analyzing…")

	ctrl.toggleErr = errors.New("collaborator unavailable")
	m = settle(t, m, cmd)
	assert.Equal(t, 2, ctrl.toggles)
	assert.Empty(t, m.pending)
	assert.Contains(t, m.View(), "analyze recording: collaborator unavailable")
}

func TestSessionBusyRejectsRequests(t *testing.T) {
	ctrl := newFakeController()
	ctrl.busy = true
	m := newModel(ctrl)

	m, cmd := press(t, m, runes("r"))
	assert.Nil(t, cmd)
	assert.Equal(t, "analysis in progress", m.status)

	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Zero(t, ctrl.toggles)
	assert.Empty(t, ctrl.cycles)

	ctrl.busy = false
	ctrl.toggleErr = session.ErrBusy
	m, cmd = press(t, m, runes("r"))
	m = settle(t, m, cmd)
	assert.Equal(t, "analysis in progress", m.status)
	assert.Nil(t, m.err)
}

func TestSessionCycleSamples(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = settle(t, m, cmd)
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	settle(t, m, cmd)

	assert.Equal(t, []int{1, -1}, ctrl.cycles)
}

func TestSessionControls(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)
	steps := config.NewConfig().Controls

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.InDelta(t, steps.OffsetStep, ctrl.controls.TimeOffset, 1e-9)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.InDelta(t, 1+steps.PitchStep, ctrl.controls.PitchMultiplier, 1e-9)

	m, _ = press(t, m, runes("]"))
	m, _ = press(t, m, runes("]"))
	m, _ = press(t, m, runes("["))
	assert.InDelta(t, steps.IntensityStep, ctrl.controls.IntensityOffset, 1e-9)

	ctrl.controls.PitchMultiplier = steps.PitchStep
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, steps.PitchStep, ctrl.controls.PitchMultiplier, "multiplier must stay positive")

	m, _ = press(t, m, runes("0"))
	assert.Equal(t, series.DefaultControls(), ctrl.controls)
	assert.Contains(t, m.View(), "pitch ×1.00")
}

func TestSessionPlayback(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)

	m, _ = press(t, m, runes("p"))
	assert.Equal(t, 1, ctrl.refPlays)

	ctrl.playUserErr = playback.ErrNoMedia
	m, _ = press(t, m, runes("u"))
	assert.Equal(t, "no recording to play", m.status)
	assert.Nil(t, m.err)

	m, _ = press(t, m, runes("s"))
	assert.Equal(t, 1, ctrl.pauses)

	ctrl.playing = true
	ctrl.cursor = 0.5
	ctrl.vowel = "a"
	view := m.View()
	assert.Contains(t, view, "▶ 0.50s")
	assert.Contains(t, view, "/a/")
	assert.Contains(t, view, "one.wav (1/2)")
	assert.Contains(t, view, "(no recording)")
}

func TestSessionInitLoadsSamples(t *testing.T) {
	ctrl := newFakeController()
	m := newModel(ctrl)
	assert.Contains(t, m.View(), "loading samples…")

	msg := m.run("load samples", func(ctx context.Context) error {
		_, err := ctrl.LoadSamples(ctx)
		return err
	})()
	next, _ := m.Update(msg)
	assert.Equal(t, 1, ctrl.loads)
	assert.Equal(t, "load samples done", next.(SessionModel).status)
}

func TestSessionShowsMeterAndAnalysisError(t *testing.T) {
	ctrl := newFakeController()
	ctrl.capturing = true
	ctrl.meter.Observe(capture.Event{Kind: capture.EventBlock, Peak: 0.5})
	ctrl.err = errors.New("no voiced frames")
	m := newModel(ctrl)

	view := m.View()
	assert.Contains(t, view, "0.50")
	assert.Contains(t, view, "● REC")
	assert.Contains(t, view, "Error: no voiced frames")
	assert.Equal(t, 15, strings.Count(meterBar(0.5), "█"))
	assert.Equal(t, meterWidth, strings.Count(meterBar(2), "█"))
	assert.Zero(t, strings.Count(meterBar(-1), "█"))
}

func TestSessionQuit(t *testing.T) {
	m := newModel(newFakeController())
	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

var pickerDevices = []capture.Device{
	{ID: 0, Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{ID: 1, Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
}

func pickerUpdate(t *testing.T, m DeviceListModel, msg tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	dm, ok := next.(DeviceListModel)
	require.True(t, ok)
	return dm, cmd
}

func TestDevicePicker(t *testing.T) {
	orig := hostDevices
	t.Cleanup(func() { hostDevices = orig })
	hostDevices = func() ([]capture.Device, error) { return pickerDevices, nil }

	m := NewDeviceListModel()
	assert.Equal(t, "Initializing...", m.View())

	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = pickerUpdate(t, m, m.Init()())
	assert.Contains(t, m.View(), "[1] Built-in Microphone (Input)")

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ListScreen, m.activeScreen, "output-only device must not be selectable")
	assert.Contains(t, m.View(), "has no input channels")

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ConfigScreen, m.activeScreen)
	assert.Equal(t, 48000.0, m.selectedSampleRate)

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	choice, ok := m.Choice()
	require.True(t, ok)
	assert.Equal(t, DeviceChoice{DeviceID: 1, Name: "Built-in Microphone", SampleRate: 44100}, choice)
}

func TestDevicePickerError(t *testing.T) {
	orig := hostDevices
	t.Cleanup(func() { hostDevices = orig })
	hostDevices = func() ([]capture.Device, error) { return nil, errors.New("no host api") }

	m := NewDeviceListModel()
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = pickerUpdate(t, m, m.Init()())
	assert.Contains(t, m.View(), "Error: no host api")

	_, ok := m.Choice()
	assert.False(t, ok)
}
