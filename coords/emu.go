package coords

import "math"

// Flow documents are laid out on a fixed Letter canvas measured in English
// Metric Units regardless of the source's real page size.
const (
	EMUPerPoint     = 12700
	LetterWidthEMU  = 7772400
	LetterHeightEMU = 10058400

	// Anchored objects are never smaller than this.
	MinAnchorWidthEMU  = 200000
	MinAnchorHeightEMU = 100000

	// Percentage extents assumed when a flow field stores none.
	FlowDefaultWidth  = 20
	FlowDefaultHeight = 10
)

// LetterEMU is the flow canvas size.
var LetterEMU = Size{Width: LetterWidthEMU, Height: LetterHeightEMU}

// EMU is an integral English Metric Unit rectangle.
type EMU struct {
	X, Y, Width, Height int64
}

// PointsToEMU converts points to EMU.
func PointsToEMU(pt float64) int64 { return int64(math.Round(pt * EMUPerPoint)) }

// MapEMU places b on the Letter canvas with a top-left origin. Percentage
// boxes scale against the canvas; absolute boxes are read as points. Missing
// components of an otherwise percentage box take the flow defaults. The
// extent is raised to the anchor minimums.
func MapEMU(b Box) EMU {
	if b.fitsPercent() {
		b = Box{
			X:      Known(b.X.or(0)),
			Y:      Known(b.Y.or(0)),
			Width:  Known(b.Width.or(FlowDefaultWidth)),
			Height: Known(b.Height.or(FlowDefaultHeight)),
		}
	}
	if !b.IsPercent() {
		pt := Map(b, Size{Width: LetterWidthEMU / EMUPerPoint, Height: LetterHeightEMU / EMUPerPoint}, TopLeft)
		return EMU{
			X:      PointsToEMU(pt.X),
			Y:      PointsToEMU(pt.Y),
			Width:  max(MinAnchorWidthEMU, PointsToEMU(pt.Width)),
			Height: max(MinAnchorHeightEMU, PointsToEMU(pt.Height)),
		}
	}
	r := Map(b, LetterEMU, TopLeft)
	return EMU{
		X:      int64(math.Round(r.X)),
		Y:      int64(math.Round(r.Y)),
		Width:  max(MinAnchorWidthEMU, int64(math.Round(r.Width))),
		Height: max(MinAnchorHeightEMU, int64(math.Round(r.Height))),
	}
}

func (b Box) fitsPercent() bool {
	for _, l := range []Length{b.X, b.Y, b.Width, b.Height} {
		if l.Valid && l.Value > PercentThreshold {
			return false
		}
	}
	return true
}
