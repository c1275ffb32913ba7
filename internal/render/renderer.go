// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"io"
	"sync"

	"prosody/internal/series"
)

// Renderer draws charts sized from the current layout width.
type Renderer struct {
	mu     sync.RWMutex
	layout Layout
	theme  Theme
}

// New creates a renderer with the default theme.
func New(layout Layout) *Renderer {
	return &Renderer{layout: layout, theme: DefaultTheme}
}

// Resize records a new container width. The next frame picks it up.
func (r *Renderer) Resize(width int) {
	r.mu.Lock()
	r.layout.Width = width
	r.mu.Unlock()
}

// Layout returns the current layout.
func (r *Renderer) Layout() Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layout
}

// Frame returns the canvas size for c under the current layout.
func (r *Renderer) Frame(c Chart) Frame {
	return r.Layout().Frame(c)
}

// Draw renders chart c of charts onto s, which must be sized to Frame(c).
func (r *Renderer) Draw(s Surface, c Chart, charts series.Charts, cursor Cursor) {
	r.draw(s, r.Frame(c), c, charts, cursor)
}

func (r *Renderer) draw(s Surface, f Frame, c Chart, charts series.Charts, cursor Cursor) {
	switch c {
	case ChartPitch:
		DrawLines(s, f, r.theme, c.YLabel(), charts.Pitch, cursor)
	case ChartFormants:
		DrawFormants(s, f, r.theme, c.YLabel(), charts.Formants, cursor)
	case ChartIntensity:
		DrawLines(s, f, r.theme, c.YLabel(), charts.Intensity, cursor)
	}
}

// WritePNG renders chart c to w as a PNG image.
func (r *Renderer) WritePNG(w io.Writer, c Chart, charts series.Charts, cursor Cursor) error {
	f := r.Frame(c)
	if err := WritePNG(w, f, func(s Surface) { r.draw(s, f, c, charts, cursor) }); err != nil {
		return fmt.Errorf("encode %s chart: %w", c, err)
	}
	return nil
}
