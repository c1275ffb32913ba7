// SPDX-License-Identifier: MIT
package render

import (
	"math"

	"prosody/internal/series"

	"gonum.org/v1/gonum/floats"
)

// Domain is the shared time and value range of every series on one chart.
type Domain struct {
	TMin, TMax float64
	VMin, VMax float64
	timed      bool // TMin and TMax are set
	valid      bool // both ranges are set
}

// Empty reports whether the chart had no timestamps or no values.
func (d Domain) Empty() bool { return !d.valid }

// Contains reports whether t lies in [TMin, TMax]. The time range stands on
// its own: a chart of gaps still has one.
func (d Domain) Contains(t float64) bool {
	return d.timed && t >= d.TMin && t <= d.TMax
}

func newDomain(times, values []float64) Domain {
	var d Domain
	if len(times) == 0 {
		return d
	}
	d.TMin, d.TMax, d.timed = floats.Min(times), floats.Max(times), true
	if len(values) == 0 {
		return d
	}
	d.VMin, d.VMax, d.valid = floats.Min(values), floats.Max(values), true
	return d
}

// LineDomain merges the timestamps and present values of ss. Gaps do not
// contribute a value.
func LineDomain(ss []series.Series) Domain {
	var times, values []float64
	for _, s := range ss {
		times = appendFinite(times, s.Times...)
		for _, v := range s.Values {
			if v.Valid {
				values = appendFinite(values, v.Float)
			}
		}
	}
	return newDomain(times, values)
}

// BandDomain merges the timestamps and every formant component of bs.
func BandDomain(bs []series.BandSeries) Domain {
	var times, values []float64
	for _, b := range bs {
		times = appendFinite(times, b.Times...)
		for _, vec := range b.Vectors {
			values = appendFinite(values, vec...)
		}
	}
	return newDomain(times, values)
}

func appendFinite(dst []float64, vs ...float64) []float64 {
	for _, v := range vs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Scale maps domain coordinates into a frame's plot area.
type Scale struct {
	Domain
	left, top, w, h float64
}

// NewScale binds d to the plot area of f.
func NewScale(d Domain, f Frame) Scale {
	w, h := f.Plot()
	return Scale{Domain: d, left: f.Pad.Left, top: f.Pad.Top, w: w, h: h}
}

// X maps a timestamp. A zero-width time domain maps to the left edge.
func (s Scale) X(t float64) float64 {
	span := s.TMax - s.TMin
	if span == 0 {
		return s.left
	}
	return s.left + (t-s.TMin)/span*s.w
}

// Y maps a value. A zero-height value domain maps to the bottom edge.
func (s Scale) Y(v float64) float64 {
	span := s.VMax - s.VMin
	if span == 0 {
		return s.top + s.h
	}
	return s.top + s.h - (v-s.VMin)/span*s.h
}
