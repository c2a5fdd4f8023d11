package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arpitWebvedant/E-signature-api/docxrender"
	"github.com/arpitWebvedant/E-signature-api/pdfcanvas"
	"github.com/arpitWebvedant/E-signature-api/source"
)

// MaxUploadSize is the largest source document accepted for upload.
const MaxUploadSize = 50 << 20

var (
	ErrTooLarge        = errors.New("document exceeds upload size limit")
	ErrUnsupportedType = errors.New("unsupported document type")
)

// ValidateSource checks an upload before it is stored and returns its
// format. PDFs must parse and must not be encrypted. DOCX files must be
// readable packages with a main document part.
func ValidateSource(name string, data []byte) (source.Format, error) {
	return validateSource(name, data, MaxUploadSize)
}

func validateSource(name string, data []byte, limit int) (source.Format, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidSourceDocument)
	}
	if len(data) > limit {
		return 0, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), limit)
	}
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		if _, err := pdfcanvas.Open(data); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSourceDocument, err)
		}
		return source.FormatPDF, nil
	case ".docx":
		if err := docxrender.Validate(data); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSourceDocument, err)
		}
		return source.FormatDOCX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}
