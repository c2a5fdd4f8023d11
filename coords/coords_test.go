package coords

import (
	"math"
	"testing"
)

func box(x, y, w, h float64) Box {
	return Box{X: Known(x), Y: Known(y), Width: Known(w), Height: Known(h)}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMapPercentFlipsOrigin(t *testing.T) {
	got := Map(box(50, 50, 20, 10), Size{Width: 600, Height: 800}, BottomLeft)
	want := Rect{X: 300, Y: 320, Width: 120, Height: 80}
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Width, want.Width) || !near(got.Height, want.Height) {
		t.Fatalf("Map = %+v, want %+v", got, want)
	}
}

func TestMapTopLeftKeepsY(t *testing.T) {
	got := Map(box(10, 25, 10, 10), Size{Width: 600, Height: 800}, TopLeft)
	if !near(got.Y, 200) {
		t.Fatalf("y = %v, want 200", got.Y)
	}
}

func TestMapAbsolutePassThrough(t *testing.T) {
	page := Size{Width: 2000, Height: 2000}
	got := Map(box(500, 10, 700, 900), page, TopLeft)
	want := Rect{X: 500, Y: 10, Width: 700, Height: 900}
	if got != want {
		t.Fatalf("Map = %+v, want %+v", got, want)
	}

	flipped := Map(box(500, 10, 700, 900), page, BottomLeft)
	if !near(flipped.Y, 2000-10-900) {
		t.Fatalf("flipped y = %v", flipped.Y)
	}
}

func TestMapClampsToMinimums(t *testing.T) {
	// Box taller than the page flips below zero.
	got := Map(box(500, 10, 700, 900), Size{Width: 600, Height: 800}, BottomLeft)
	if got.Y != 0 {
		t.Fatalf("y = %v, want clamped to 0", got.Y)
	}
	got = Map(box(-5, 0, 0, 0), Size{Width: 600, Height: 800}, TopLeft)
	if got.X != 0 || got.Width != 1 || got.Height != 1 {
		t.Fatalf("clamp failed: %+v", got)
	}
}

func TestMapCoercesMissingValues(t *testing.T) {
	b := Box{X: Known(150), Y: Length{}, Width: Length{}, Height: Known(30)}
	got := Map(b, Size{Width: 600, Height: 800}, TopLeft)
	want := Rect{X: 150, Y: 0, Width: DefaultWidth, Height: 30}
	if got != want {
		t.Fatalf("Map = %+v, want %+v", got, want)
	}
}

func TestMapBoundaryIsPercent(t *testing.T) {
	if !box(100, 100, 100, 100).IsPercent() {
		t.Fatalf("100 should still be a percentage")
	}
	if box(100.5, 0, 1, 1).IsPercent() {
		t.Fatalf("values above 100 are absolute")
	}
}

func TestMapEMU(t *testing.T) {
	got := MapEMU(box(10, 50, 25, 5))
	want := EMU{X: 777240, Y: 5029200, Width: 1943100, Height: 502920}
	if got != want {
		t.Fatalf("MapEMU = %+v, want %+v", got, want)
	}

	small := MapEMU(box(0, 0, 1, 0.5))
	if small.Width != MinAnchorWidthEMU || small.Height != MinAnchorHeightEMU {
		t.Fatalf("minimum extent not applied: %+v", small)
	}

	def := MapEMU(Box{X: Known(0), Y: Known(0)})
	if def.Width != 1554480 || def.Height != 1005840 {
		t.Fatalf("flow defaults not applied: %+v", def)
	}

	abs := MapEMU(box(144, 72, 200, 50))
	if abs.X != 144*EMUPerPoint || abs.Y != 72*EMUPerPoint || abs.Width != 200*EMUPerPoint {
		t.Fatalf("absolute box should be read as points: %+v", abs)
	}
}

func TestMapEMUAbsoluteRoundsPoints(t *testing.T) {
	got := MapEMU(box(100.4, 300.25, 150.5, 40))
	want := EMU{X: PointsToEMU(100.4), Y: PointsToEMU(300.25), Width: PointsToEMU(150.5), Height: PointsToEMU(40)}
	if got != want {
		t.Fatalf("MapEMU = %+v, want %+v", got, want)
	}
	if PointsToEMU(1.5) != 19050 {
		t.Fatalf("PointsToEMU(1.5) = %d", PointsToEMU(1.5))
	}
}

func TestRemToPoints(t *testing.T) {
	if got := RemToPoints(2); !near(got, 22.5) {
		t.Fatalf("RemToPoints(2) = %v", got)
	}
}
