// Package coords converts stored field geometry into draw rectangles for the
// fixed-layout and flow-based renderers.
package coords

import "math"

type Matrix [6]float64

func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2], m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2], m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4], m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

// Length is a stored coordinate that may be missing or non-numeric.
type Length struct {
	Value float64
	Valid bool
}

// Known wraps a numeric coordinate.
func Known(v float64) Length { return Length{Value: v, Valid: true} }

func (l Length) or(def float64) float64 {
	if !l.Valid {
		return def
	}
	return l.Value
}

// Box is a field's stored position and size.
type Box struct {
	X, Y, Width, Height Length
}

// Size is a page size in the target format's native units.
type Size struct {
	Width, Height float64
}

// Rect is an absolute draw rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Origin selects the vertical axis convention of the target canvas.
type Origin int

const (
	// BottomLeft is the fixed-layout convention: y grows upwards.
	BottomLeft Origin = iota
	// TopLeft is the flow-layout convention: y grows downwards.
	TopLeft
)

// Defaults for absolute boxes with missing or non-numeric components.
const (
	DefaultX      = 0
	DefaultY      = 0
	DefaultWidth  = 50
	DefaultHeight = 20
)

// PercentThreshold is the largest value still read as a percentage. A box is
// percentage-based only when all four components are valid and no larger than
// this, so an absolute box that happens to fit within 100 units on a large
// page is misread as percentages. The ambiguity is inherited from stored data
// and kept for compatibility.
const PercentThreshold = 100

// IsPercent reports whether b is expressed in percent of the page.
func (b Box) IsPercent() bool {
	for _, l := range []Length{b.X, b.Y, b.Width, b.Height} {
		if !l.Valid || l.Value > PercentThreshold {
			return false
		}
	}
	return true
}

// Map resolves b against a page of the given size. With BottomLeft the
// rectangle's Y is its lower edge measured from the page bottom; with TopLeft
// it is the upper edge measured from the page top. Positions are clamped to
// zero and dimensions to one.
func Map(b Box, page Size, origin Origin) Rect {
	var r Rect
	if b.IsPercent() {
		toPage := Scale(page.Width/100, page.Height/100)
		p := toPage.Transform(Point{b.X.Value, b.Y.Value})
		d := toPage.Transform(Point{b.Width.Value, b.Height.Value})
		r = Rect{X: p.X, Y: p.Y, Width: d.X, Height: d.Y}
	} else {
		r = Rect{
			X:      b.X.or(DefaultX),
			Y:      b.Y.or(DefaultY),
			Width:  b.Width.or(DefaultWidth),
			Height: b.Height.or(DefaultHeight),
		}
	}
	if origin == BottomLeft {
		flip := Scale(1, -1).Multiply(Translate(0, page.Height-r.Height))
		r.Y = flip.Transform(Point{r.X, r.Y}).Y
	}
	return Rect{
		X:      math.Max(0, r.X),
		Y:      math.Max(0, r.Y),
		Width:  math.Max(1, r.Width),
		Height: math.Max(1, r.Height),
	}
}

// RemToPoints converts a stored rem font size to points, assuming a 15px root
// size and 0.75pt per pixel.
func RemToPoints(rem float64) float64 { return rem * 15 * 0.75 }
