// SPDX-License-Identifier: MIT

// Package render draws the pitch, formant and intensity charts onto a
// Surface. Every function is stateless: it clears the surface, computes a
// shared scale from all series on the chart, and draws axes, series,
// legend and the playback cursor in that order.
package render

import (
	"image/color"

	"prosody/internal/series"
)

// Cursor is the playback position to overlay, if any.
type Cursor struct {
	Time  float64
	Valid bool
}

// At returns a visible cursor at t.
func At(t float64) Cursor { return Cursor{Time: t, Valid: true} }

// NoCursor hides the cursor.
var NoCursor = Cursor{}

// Theme holds the chart colors and stroke widths.
type Theme struct {
	Background  color.Color
	Axes        color.Color
	Label       color.Color
	Legend      color.Color
	Cursor      color.Color
	BandStroke  color.Color
	LineWidth   float64
	BandOpacity uint8
}

// DefaultTheme is a dark theme with translucent formant bands.
var DefaultTheme = Theme{
	Background:  color.RGBA{R: 0x0f, G: 0x11, B: 0x15, A: 0xff},
	Axes:        color.RGBA{R: 0x39, G: 0x40, B: 0x55, A: 0xff},
	Label:       color.RGBA{R: 0x9a, G: 0xa0, B: 0xa6, A: 0xff},
	Legend:      color.RGBA{R: 0xcb, G: 0xd5, B: 0xe1, A: 0xff},
	Cursor:      color.NRGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xb3},
	BandStroke:  color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb3},
	LineWidth:   1.5,
	BandOpacity: 0xb3,
}

// DrawLines draws scalar series as polylines that break at every gap.
func DrawLines(s Surface, f Frame, th Theme, yLabel string, ss []series.Series, cursor Cursor) {
	sc := NewScale(LineDomain(ss), f)
	begin(s, f, th, yLabel)

	for i, ser := range ss {
		if !sc.Empty() {
			s.SetColor(ser.Color)
			s.SetLineWidth(th.LineWidth)
			traceLine(s, sc, ser)
			s.Stroke()
		}
		drawLegend(s, f, th, i, ser.Color, ser.Label)
	}

	drawCursor(s, sc, th, cursor)
}

func traceLine(s Surface, sc Scale, ser series.Series) {
	penDown := false
	for i, t := range ser.Times {
		if i >= len(ser.Values) {
			break
		}
		v := ser.Values[i]
		if !v.Valid {
			penDown = false
			continue
		}
		x, y := sc.X(t), sc.Y(v.Float)
		if !penDown {
			s.MoveTo(x, y)
			penDown = true
		} else {
			s.LineTo(x, y)
		}
	}
}

// Band is one maximal run of samples carrying exactly three formants.
type Band struct {
	Times      []float64
	F1, F2, F3 []float64
}

// Bands splits a formant track into runs. A vector of any other length,
// including a nil vector, ends the current run.
func Bands(b series.BandSeries) []Band {
	var (
		out []Band
		cur Band
	)
	flush := func() {
		if len(cur.Times) > 0 {
			out = append(out, cur)
		}
		cur = Band{}
	}
	for i, t := range b.Times {
		if i >= len(b.Vectors) || len(b.Vectors[i]) != 3 {
			flush()
			continue
		}
		vec := b.Vectors[i]
		cur.Times = append(cur.Times, t)
		cur.F1 = append(cur.F1, vec[0])
		cur.F2 = append(cur.F2, vec[1])
		cur.F3 = append(cur.F3, vec[2])
	}
	flush()
	return out
}

// DrawFormants draws each run as a filled polygon from F1 forward and F3
// backward, with F2 stroked as an open line on top.
func DrawFormants(s Surface, f Frame, th Theme, yLabel string, bs []series.BandSeries, cursor Cursor) {
	sc := NewScale(BandDomain(bs), f)
	begin(s, f, th, yLabel)

	for i, b := range bs {
		if !sc.Empty() {
			s.SetLineWidth(1)
			for _, band := range Bands(b) {
				drawBand(s, sc, th, b.Color, band)
			}
		}
		drawLegend(s, f, th, i, b.Color, b.Label)
	}

	drawCursor(s, sc, th, cursor)
}

func drawBand(s Surface, sc Scale, th Theme, c color.RGBA, b Band) {
	s.MoveTo(sc.X(b.Times[0]), sc.Y(b.F1[0]))
	for i := 1; i < len(b.Times); i++ {
		s.LineTo(sc.X(b.Times[i]), sc.Y(b.F1[i]))
	}
	for i := len(b.Times) - 1; i >= 0; i-- {
		s.LineTo(sc.X(b.Times[i]), sc.Y(b.F3[i]))
	}
	s.ClosePath()
	s.SetColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: th.BandOpacity})
	s.FillPreserve()
	s.SetColor(th.BandStroke)
	s.Stroke()

	s.MoveTo(sc.X(b.Times[0]), sc.Y(b.F2[0]))
	for i := 1; i < len(b.Times); i++ {
		s.LineTo(sc.X(b.Times[i]), sc.Y(b.F2[i]))
	}
	s.Stroke()
}

func begin(s Surface, f Frame, th Theme, yLabel string) {
	s.SetColor(th.Background)
	s.Clear()
	drawAxes(s, f, th, yLabel)
}

func drawAxes(s Surface, f Frame, th Theme, yLabel string) {
	w, h := f.Plot()
	p := f.Pad
	s.SetColor(th.Axes)
	s.SetLineWidth(1)
	s.MoveTo(p.Left, p.Top)
	s.LineTo(p.Left, p.Top+h)
	s.LineTo(p.Left+w, p.Top+h)
	s.Stroke()

	s.SetColor(th.Label)
	s.DrawString(yLabel, 2, 14)
}

func drawLegend(s Surface, f Frame, th Theme, i int, c color.Color, label string) {
	p := f.Pad
	s.SetColor(th.Legend)
	s.DrawString(label, p.Left+20+90*float64(i), p.Top+12)
	s.SetColor(c)
	s.DrawRectangle(p.Left+8+90*float64(i), p.Top+4, 8, 8)
	s.Fill()
}

func drawCursor(s Surface, sc Scale, th Theme, cursor Cursor) {
	if !cursor.Valid || !sc.Contains(cursor.Time) {
		return
	}
	x := sc.X(cursor.Time)
	s.Push()
	s.SetColor(th.Cursor)
	s.SetLineWidth(1)
	s.MoveTo(x, sc.top)
	s.LineTo(x, sc.top+sc.h)
	s.Stroke()
	s.Pop()
}
