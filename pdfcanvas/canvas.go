// Package pdfcanvas is the drawing surface for fixed-layout documents: it
// exposes page sizes, draws text and images on existing pages and appends
// template pages.
package pdfcanvas

import (
	"errors"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

var (
	// ErrInvalidDocument is returned for bytes that do not parse as a PDF.
	ErrInvalidDocument = errors.New("invalid pdf document")
	// ErrEncrypted is returned for encrypted documents, which are not stamped.
	ErrEncrypted = errors.New("pdf document is encrypted")
	// ErrNoSuchPage is returned when drawing outside the page range.
	ErrNoSuchPage = errors.New("page out of range")
)

// Text is a single line of text. X and Y locate the lower-left corner of the
// line in points from the page's lower-left corner.
type Text struct {
	Content string
	X, Y    float64
	Face    fonts.Face
	Size    float64
	Color   signdata.Color
}

// Image places img stretched to the rectangle.
type Image struct {
	Image *assets.Image
	Rect  coords.Rect
}

// Canvas is a fixed-layout document being stamped. Pages are 1-based.
type Canvas interface {
	PageCount() int
	PageSize(page int) (coords.Size, error)
	// DrawText draws each line. Either every line is drawn or, on error,
	// none is.
	DrawText(page int, lines ...Text) error
	DrawImage(page int, img Image) error
	// AppendPage copies page templatePage of template to the end of the
	// document and returns the new page number.
	AppendPage(template []byte, templatePage int) (int, error)
	// Bytes serialises the document with everything drawn so far.
	Bytes() ([]byte, error)
}
