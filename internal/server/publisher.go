// SPDX-License-Identifier: MIT
package server

import (
	"bytes"
	"sync/atomic"
	"time"

	applog "prosody/internal/log"
	"prosody/internal/metrics"
	"prosody/internal/render"
	"prosody/internal/series"
	"prosody/internal/transport"
)

// State is the part of a session a frame is built from.
type State interface {
	Sample() string
	Charts() series.Charts
	Cursor() (float64, bool)
	Vowel() (string, bool)
	Controls() series.Controls
	Err() error
}

// Publisher turns the session state into frames and hands them to a
// transport. Draw is the scheduler's draw function.
type Publisher struct {
	state     State
	renderer  *render.Renderer
	transport transport.Transport
	viewers   func() int
	metrics   *metrics.Metrics

	seq atomic.Uint64
}

// NewPublisher creates a publisher. viewers reports how many viewers are
// connected; charts are only rasterized while it is non-zero.
func NewPublisher(state State, r *render.Renderer, t transport.Transport, viewers func() int, m *metrics.Metrics) *Publisher {
	if viewers == nil {
		viewers = func() int { return 1 }
	}
	return &Publisher{state: state, renderer: r, transport: t, viewers: viewers, metrics: m}
}

// Draw builds one frame from the current state and sends it.
func (p *Publisher) Draw() {
	start := time.Now()
	frame := p.Frame(p.viewers() > 0)
	p.metrics.RecordRedraw(time.Since(start))

	if err := p.transport.Send(frame); err != nil {
		applog.Warnf("Viewer: Failed to send frame %d: %v", frame.Seq, err)
		return
	}
	p.metrics.RecordFrameSent()
}

// Frame snapshots the state. With rasterize set the three charts are
// rendered to PNG.
func (p *Publisher) Frame(rasterize bool) *transport.Frame {
	charts := p.state.Charts()
	c := p.state.Controls()

	frame := &transport.Frame{
		Seq:    p.seq.Add(1),
		Sample: p.state.Sample(),
		Controls: transport.Controls{
			TimeOffset:      c.TimeOffset,
			PitchMultiplier: c.PitchMultiplier,
			IntensityOffset: c.IntensityOffset,
		},
	}

	cursor := render.NoCursor
	if t, ok := p.state.Cursor(); ok {
		cursor = render.At(t)
		frame.Cursor = &t
	}
	if v, ok := p.state.Vowel(); ok {
		frame.Vowel = v
	}
	if err := p.state.Err(); err != nil {
		frame.Error = err.Error()
	}

	if !rasterize {
		return frame
	}

	frame.Charts = make(map[string][]byte, len(render.Charts))
	for _, chart := range render.Charts {
		var buf bytes.Buffer
		if err := p.renderer.WritePNG(&buf, chart, charts, cursor); err != nil {
			applog.Warnf("Viewer: %v", err)
			continue
		}
		frame.Charts[chart.String()] = buf.Bytes()
	}
	return frame
}
