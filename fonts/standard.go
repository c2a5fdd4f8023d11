package fonts

import (
	pdffont "github.com/pdfcpu/pdfcpu/pkg/font"
)

// Names of the core fonts every PDF reader provides.
const (
	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// Standard is one of the 14 core PDF fonts. Widths come from the AFM metrics
// bundled with pdfcpu.
type Standard struct {
	name string
	// bbox height of the font in 1/1000 em
	height float64
}

var standardHeights = map[string]float64{
	Helvetica:     931 + 225,
	HelveticaBold: 962 + 228,
}

// NewStandard returns the core font with the given name. Unknown names fall
// back to Helvetica.
func NewStandard(name string) *Standard {
	h, ok := standardHeights[name]
	if !ok {
		name, h = Helvetica, standardHeights[Helvetica]
	}
	return &Standard{name: name, height: h}
}

func (s *Standard) Name() string { return s.name }

func (s *Standard) TextWidth(text string, size float64) float64 {
	// Measure at 1000pt to keep fractional sizes exact.
	return pdffont.TextWidth(text, s.name, 1000) * size / 1000
}

func (s *Standard) HeightAtSize(size float64) float64 {
	return s.height * size / 1000
}
