// Package fonts measures text for the fonts used on signed documents: the
// standard PDF core fonts and embedded TrueType handwriting fonts.
package fonts

import (
	"fmt"
	"strings"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Face measures text set in one font.
type Face interface {
	// Name is the font name understood by the PDF writer.
	Name() string
	// TextWidth is the advance width of text at size points.
	TextWidth(text string, size float64) float64
	// HeightAtSize is the distance from descender to ascender at size points.
	HeightAtSize(size float64) float64
}

// TrueType is a parsed TrueType/OpenType font to be embedded in the output.
type TrueType struct {
	name       string
	data       []byte
	unitsPerEm sfnt.Units
	ascent     float64 // 1/1000 em
	descent    float64 // 1/1000 em, positive
	shaper     *shaper
}

// LoadTrueType parses a TrueType/OpenType font and extracts the vertical
// metrics. The face is named by its PostScript name, which is how PDF writers
// refer to installed fonts; name is used when the font carries none.
func LoadTrueType(name string, data []byte) (*TrueType, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}

	metrics, err := font.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("read truetype metrics: %w", err)
	}
	sh, err := newShaper(data)
	if err != nil {
		return nil, fmt.Errorf("load truetype shaper: %w", err)
	}
	return &TrueType{
		name:       baseName,
		data:       data,
		unitsPerEm: unitsPerEm,
		ascent:     scaleFixed(metrics.Ascent, unitsPerEm),
		descent:    scaleFixed(metrics.Descent, unitsPerEm),
		shaper:     sh,
	}, nil
}

func (t *TrueType) Name() string { return t.name }

// Data is the font program to embed.
func (t *TrueType) Data() []byte { return t.data }

func (t *TrueType) TextWidth(text string, size float64) float64 {
	return t.shaper.advance(text) * size / 1000
}

func (t *TrueType) HeightAtSize(size float64) float64 {
	return (t.ascent + t.descent) * size / 1000
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}
