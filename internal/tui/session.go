// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prosody/internal/capture"
	"prosody/internal/config"
	"prosody/internal/playback"
	"prosody/internal/series"
	"prosody/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	refreshInterval = 50 * time.Millisecond
	meterWidth      = 30
)

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6")).Width(10)
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	recordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7A7A")).Bold(true)
	vowelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2FF")).Bold(true)
)

// Controller is the session surface the operator UI drives.
type Controller interface {
	LoadSamples(ctx context.Context) ([]string, error)
	Samples() []string
	Sample() string
	CycleSample(ctx context.Context, delta int) error
	ToggleRecord(ctx context.Context) error
	Capturing() bool
	Busy() bool
	Err() error
	PlayReference() error
	PlayUser() error
	Pause() error
	Playing() bool
	UserPlayable() bool
	Controls() series.Controls
	SetTimeOffset(v float64)
	SetPitchMultiplier(v float64)
	SetIntensityOffset(v float64)
	Cursor() (float64, bool)
	Vowel() (string, bool)
	Meter() *capture.Meter
}

var _ Controller = (*session.Session)(nil)

type keyMap struct {
	Record     key.Binding
	PlayRef    key.Binding
	PlayUser   key.Binding
	Pause      key.Binding
	NextSample key.Binding
	PrevSample key.Binding
	OffsetDown key.Binding
	OffsetUp   key.Binding
	PitchUp    key.Binding
	PitchDown  key.Binding
	LevelDown  key.Binding
	LevelUp    key.Binding
	Reset      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.PlayRef, k.PlayUser, k.Pause, k.NextSample, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Record, k.PlayRef, k.PlayUser, k.Pause},
		{k.NextSample, k.PrevSample, k.Reset},
		{k.OffsetDown, k.OffsetUp, k.PitchUp, k.PitchDown, k.LevelDown, k.LevelUp},
		{k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Record:     key.NewBinding(key.WithKeys("r", " "), key.WithHelp("r", "record/stop")),
	PlayRef:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play reference")),
	PlayUser:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "play recording")),
	Pause:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pause")),
	NextSample: key.NewBinding(key.WithKeys("tab", "n"), key.WithHelp("tab", "next sample")),
	PrevSample: key.NewBinding(key.WithKeys("shift+tab", "N"), key.WithHelp("shift+tab", "previous sample")),
	OffsetDown: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "offset -")),
	OffsetUp:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "offset +")),
	PitchUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "pitch ×+")),
	PitchDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "pitch ×-")),
	LevelDown:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "level -")),
	LevelUp:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "level +")),
	Reset:      key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset controls")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// resultMsg reports the outcome of a blocking session operation.
type resultMsg struct {
	op  string
	err error
}

// SessionModel is the operator screen.
type SessionModel struct {
	ctx   context.Context
	ctrl  Controller
	steps config.ControlsConfig
	keys  keyMap
	help  help.Model

	defaults series.Controls
	pending  string
	status   string
	err      error
}

// NewSessionModel creates the operator screen. ctx bounds the blocking
// operations it starts; steps sets the control increments.
func NewSessionModel(ctx context.Context, ctrl Controller, steps config.ControlsConfig) SessionModel {
	return SessionModel{
		ctx:   ctx,
		ctrl:  ctrl,
		steps: steps,
		keys:  defaultKeys,
		help:  help.New(),
		defaults: series.Controls{
			TimeOffset:      steps.TimeOffset,
			PitchMultiplier: steps.PitchMultiplier,
			IntensityOffset: steps.IntensityOffset,
		}.Normalized(),
		pending: "loading samples",
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m SessionModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{op: op, err: fn(ctx)}
	}
}

// Init loads the sample list and starts the refresh tick.
func (m SessionModel) Init() tea.Cmd {
	return tea.Batch(
		m.run("load samples", func(ctx context.Context) error {
			_, err := m.ctrl.LoadSamples(ctx)
			return err
		}),
		tick(),
	)
}

// Update handles keys and operation results.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case resultMsg:
		m.pending = ""
		switch {
		case errors.Is(msg.err, session.ErrBusy):
			m.status = "analysis in progress"
		case msg.err != nil:
			m.err = fmt.Errorf("%s: %w", msg.op, msg.err)
			m.status = ""
		default:
			m.err = nil
			m.status = msg.op + " done"
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m SessionModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.ctrl.Controls()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Record):
		if m.ctrl.Busy() {
			m.status = "analysis in progress"
			return m, nil
		}
		op := "record"
		if m.ctrl.Capturing() {
			op = "analyze recording"
			m.pending = "analyzing"
		}
		return m, m.run(op, m.ctrl.ToggleRecord)

	case key.Matches(msg, m.keys.NextSample), key.Matches(msg, m.keys.PrevSample):
		if m.ctrl.Busy() {
			m.status = "analysis in progress"
			return m, nil
		}
		delta := 1
		if key.Matches(msg, m.keys.PrevSample) {
			delta = -1
		}
		m.pending = "loading sample"
		return m, m.run("select sample", func(ctx context.Context) error {
			return m.ctrl.CycleSample(ctx, delta)
		})

	case key.Matches(msg, m.keys.PlayRef):
		m.report(m.ctrl.PlayReference())

	case key.Matches(msg, m.keys.PlayUser):
		err := m.ctrl.PlayUser()
		if errors.Is(err, playback.ErrNoMedia) {
			m.status = "no recording to play"
			err = nil
		}
		m.report(err)

	case key.Matches(msg, m.keys.Pause):
		m.report(m.ctrl.Pause())

	case key.Matches(msg, m.keys.OffsetDown):
		m.ctrl.SetTimeOffset(c.TimeOffset - m.steps.OffsetStep)
	case key.Matches(msg, m.keys.OffsetUp):
		m.ctrl.SetTimeOffset(c.TimeOffset + m.steps.OffsetStep)
	case key.Matches(msg, m.keys.PitchUp):
		m.ctrl.SetPitchMultiplier(c.PitchMultiplier + m.steps.PitchStep)
	case key.Matches(msg, m.keys.PitchDown):
		if next := c.PitchMultiplier - m.steps.PitchStep; next > 0 {
			m.ctrl.SetPitchMultiplier(next)
		}
	case key.Matches(msg, m.keys.LevelDown):
		m.ctrl.SetIntensityOffset(c.IntensityOffset - m.steps.IntensityStep)
	case key.Matches(msg, m.keys.LevelUp):
		m.ctrl.SetIntensityOffset(c.IntensityOffset + m.steps.IntensityStep)
	case key.Matches(msg, m.keys.Reset):
		m.ctrl.SetTimeOffset(m.defaults.TimeOffset)
		m.ctrl.SetPitchMultiplier(m.defaults.PitchMultiplier)
		m.ctrl.SetIntensityOffset(m.defaults.IntensityOffset)
	}
	return m, nil
}

func (m *SessionModel) report(err error) {
	if err != nil {
		m.err = err
	}
}

// View renders the operator screen.
func (m SessionModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Prosody"))
	sb.WriteString("\n\n")

	samples := m.ctrl.Samples()
	sample := m.ctrl.Sample()
	if sample == "" {
		sample = mutedStyle.Render("none")
	} else {
		for i, s := range samples {
			if s == sample {
				sample = fmt.Sprintf("%s (%d/%d)", s, i+1, len(samples))
				break
			}
		}
	}
	row(&sb, "Sample", sample)

	level := m.ctrl.Meter().Level()
	input := meterBar(level) + fmt.Sprintf(" %.2f", level)
	if m.ctrl.Capturing() {
		input += " " + recordStyle.Render("● REC")
	}
	row(&sb, "Input", input)

	cursor := mutedStyle.Render("stopped")
	if t, ok := m.ctrl.Cursor(); ok {
		cursor = fmt.Sprintf("▶ %.2fs", t)
		if v, ok := m.ctrl.Vowel(); ok {
			cursor += "  " + vowelStyle.Render("/"+v+"/")
		}
	}
	if !m.ctrl.UserPlayable() {
		cursor += mutedStyle.Render("  (no recording)")
	}
	row(&sb, "Playback", cursor)

	c := m.ctrl.Controls()
	row(&sb, "Controls", fmt.Sprintf("offset %+.2fs  pitch ×%.2f  level %+.1f dB",
		c.TimeOffset, c.PitchMultiplier, c.IntensityOffset))

	status := m.status
	switch {
	case m.pending != "":
		status = m.pending + "…"
	case m.ctrl.Busy():
		status = "analyzing…"
	}
	row(&sb, "Status", status)

	err := m.err
	if err == nil {
		err = m.ctrl.Err()
	}
	if err != nil {
		sb.WriteString(errorStyle.Render("Error: " + err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func row(sb *strings.Builder, label, value string) {
	sb.WriteString(labelStyle.Render(label))
	sb.WriteString(value)
	sb.WriteString("\n")
}

func meterBar(level float64) string {
	filled := int(level*meterWidth + 0.5)
	filled = max(0, min(filled, meterWidth))
	return "[" + meterStyle.Render(strings.Repeat("█", filled)) + strings.Repeat(" ", meterWidth-filled) + "]"
}

// RunSession runs the operator screen until the operator quits.
func RunSession(ctx context.Context, ctrl Controller, steps config.ControlsConfig) error {
	p := tea.NewProgram(
		NewSessionModel(ctx, ctrl, steps),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
