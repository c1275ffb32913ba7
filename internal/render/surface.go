// SPDX-License-Identifier: MIT
package render

import (
	"image/color"
	"io"

	"github.com/fogleman/gg"
)

// Surface is the subset of a 2D vector canvas the charts draw with.
// *gg.Context satisfies it.
type Surface interface {
	Clear()
	SetColor(c color.Color)
	SetLineWidth(w float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	Stroke()
	Fill()
	FillPreserve()
	DrawRectangle(x, y, w, h float64)
	DrawString(s string, x, y float64)
	Push()
	Pop()
}

var _ Surface = (*gg.Context)(nil)

// NewCanvas returns a raster surface sized to f.
func NewCanvas(f Frame) *gg.Context {
	return gg.NewContext(f.Width, f.Height)
}

// WritePNG draws into a fresh raster of size f and encodes it as PNG.
func WritePNG(w io.Writer, f Frame, draw func(Surface)) error {
	dc := NewCanvas(f)
	draw(dc)
	return dc.EncodePNG(w)
}
