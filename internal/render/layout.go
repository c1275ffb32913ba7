// SPDX-License-Identifier: MIT
package render

import (
	"fmt"

	"prosody/internal/config"
)

// Pad is the space around a chart's plot area.
type Pad struct {
	Left, Right, Top, Bottom float64
}

// DefaultPad leaves room for the y label and the legend.
var DefaultPad = Pad{Left: 30, Right: 10, Top: 20, Bottom: 10}

// Frame is the pixel size of one chart canvas.
type Frame struct {
	Width, Height int
	Pad           Pad
}

// Plot returns the width and height of the plot area inside the padding.
// Either may be zero for tiny frames but never negative.
func (f Frame) Plot() (w, h float64) {
	w = float64(f.Width) - f.Pad.Left - f.Pad.Right
	h = float64(f.Height) - f.Pad.Top - f.Pad.Bottom
	return max(w, 0), max(h, 0)
}

// ChartWidth derives a canvas width from the measured layout width.
func ChartWidth(layoutWidth, margin int) int {
	return max(layoutWidth-margin, 1)
}

// Chart names one of the three visualizations.
type Chart int

const (
	ChartPitch Chart = iota
	ChartFormants
	ChartIntensity
)

// Charts lists every chart in display order.
var Charts = []Chart{ChartPitch, ChartFormants, ChartIntensity}

func (c Chart) String() string {
	switch c {
	case ChartPitch:
		return "pitch"
	case ChartFormants:
		return "formants"
	case ChartIntensity:
		return "intensity"
	default:
		return fmt.Sprintf("chart(%d)", int(c))
	}
}

// YLabel returns the axis label drawn in the chart's corner.
func (c Chart) YLabel() string {
	if c == ChartIntensity {
		return "Relative sound level (dB)"
	}
	return "Relative frequency (Hz)"
}

// ParseChart maps a chart name back to a Chart.
func ParseChart(name string) (Chart, error) {
	for _, c := range Charts {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown chart %q", name)
}

// Layout sizes the chart canvases from the width of their container.
type Layout struct {
	Width         int
	ChartHeight   int
	LineMargin    int
	FormantMargin int
}

// LayoutFromConfig builds a Layout from the render section.
func LayoutFromConfig(cfg config.RenderConfig) Layout {
	return Layout{
		Width:         cfg.LayoutWidth,
		ChartHeight:   cfg.ChartHeight,
		LineMargin:    cfg.LineMargin,
		FormantMargin: cfg.FormantMargin,
	}
}

// Frame returns the canvas size for c.
func (l Layout) Frame(c Chart) Frame {
	margin := l.LineMargin
	if c == ChartFormants {
		margin = l.FormantMargin
	}
	return Frame{
		Width:  ChartWidth(l.Width, margin),
		Height: max(l.ChartHeight, 1),
		Pad:    DefaultPad,
	}
}
