// SPDX-License-Identifier: MIT

// Package series projects an Analysis into display-ready chart series.
// Reference timestamps are never shifted; user timestamps are shifted by
// the time offset and user pitch and intensity go through the controls.
// Gaps survive every transform.
package series

import (
	"image/color"
	"math"
)

// Side identifies which recording a series came from.
type Side int

const (
	SideReference Side = iota
	SideUser
)

func (s Side) String() string {
	if s == SideUser {
		return "user"
	}
	return "reference"
}

var (
	ReferenceColor = color.RGBA{R: 0x7a, G: 0xa2, B: 0xff, A: 0xff}
	UserColor      = color.RGBA{R: 0xff, G: 0x7a, B: 0x7a, A: 0xff}
)

const (
	ReferenceLabel = "Reference"
	UserLabel      = "Student"
)

// Style returns the color and legend label for a side.
func (s Side) Style() (color.RGBA, string) {
	if s == SideUser {
		return UserColor, UserLabel
	}
	return ReferenceColor, ReferenceLabel
}

// Controls are the operator's alignment and scaling inputs.
type Controls struct {
	TimeOffset      float64 // seconds added to user timestamps
	PitchMultiplier float64 // applied to user pitch
	IntensityOffset float64 // dB added to user intensity
}

// DefaultControls returns the identity transform.
func DefaultControls() Controls {
	return Controls{PitchMultiplier: 1}
}

// Normalized replaces unusable inputs with their defaults: a non-finite
// offset becomes 0 and a multiplier that is not a positive number becomes 1.
func (c Controls) Normalized() Controls {
	if math.IsNaN(c.TimeOffset) || math.IsInf(c.TimeOffset, 0) {
		c.TimeOffset = 0
	}
	if math.IsNaN(c.PitchMultiplier) || math.IsInf(c.PitchMultiplier, 0) || c.PitchMultiplier <= 0 {
		c.PitchMultiplier = 1
	}
	if math.IsNaN(c.IntensityOffset) || math.IsInf(c.IntensityOffset, 0) {
		c.IntensityOffset = 0
	}
	return c
}

// Series is one scalar line on a chart.
type Series struct {
	Side   Side
	Times  []float64
	Values []Value
	Color  color.RGBA
	Label  string
}

// BandSeries is one formant track on the formant chart.
type BandSeries struct {
	Side    Side
	Times   []float64
	Vectors [][]float64
	Color   color.RGBA
	Label   string
}

// Charts holds the series for each visualization, reference first.
type Charts struct {
	Pitch     []Series
	Formants  []BandSeries
	Intensity []Series
}

// Empty reports whether there is nothing to draw.
func (c Charts) Empty() bool {
	return len(c.Pitch) == 0 && len(c.Formants) == 0 && len(c.Intensity) == 0
}

// Build projects a onto chart series. A nil analysis yields empty charts.
// The result shares no slices with a except the formant vectors, which are
// never transformed.
func Build(a *Analysis, c Controls) Charts {
	var charts Charts
	if a == nil {
		return charts
	}
	c = c.Normalized()

	if t := a.Reference; t != nil {
		charts.add(SideReference, t, Controls{PitchMultiplier: 1})
	}
	if t := a.User; t != nil {
		charts.add(SideUser, t, c)
	}
	return charts
}

func (c *Charts) add(side Side, t *Track, ctl Controls) {
	col, label := side.Style()

	times := make([]float64, len(t.Time))
	for i, ts := range t.Time {
		times[i] = ts + ctl.TimeOffset
	}

	pitch := make([]Value, len(t.Pitch))
	for i, v := range t.Pitch {
		pitch[i] = v.Mul(ctl.PitchMultiplier)
	}

	intensity := make([]Value, len(t.Intensity))
	for i, v := range t.Intensity {
		intensity[i] = v.Add(ctl.IntensityOffset)
	}

	c.Pitch = append(c.Pitch, Series{Side: side, Times: times, Values: pitch, Color: col, Label: label})
	c.Formants = append(c.Formants, BandSeries{Side: side, Times: times, Vectors: t.Formants, Color: col, Label: label})
	c.Intensity = append(c.Intensity, Series{Side: side, Times: times, Values: intensity, Color: col, Label: label})
}
