package render

import (
	"errors"
	"fmt"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/convert"
)

var (
	// ErrInvalidSourceDocument means the source bytes could not be parsed,
	// or the PDF is encrypted.
	ErrInvalidSourceDocument = errors.New("invalid source document")
	// ErrMissingSignData means the document carries nothing to render.
	ErrMissingSignData = errors.New("document has no sign data")
	// ErrSignerNotFound means a per-signer render named someone outside the
	// roster.
	ErrSignerNotFound = errors.New("signer not found in roster")
	// ErrConversion means the DOCX to PDF bridge failed.
	ErrConversion = convert.ErrConversion
	// ErrAssetEmbed only appears inside reports unless a strict strategy
	// escalates it.
	ErrAssetEmbed = assets.ErrEmbed
)

// Kind classifies a render failure.
type Kind string

const (
	KindInvalidSource   Kind = "invalid_source_document"
	KindMissingSignData Kind = "missing_sign_data"
	KindSignerNotFound  Kind = "signer_not_found"
	KindAssetEmbed      Kind = "asset_embed_failure"
	KindConversion      Kind = "conversion_failure"
	KindInternal        Kind = "internal"
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidSource:
		return ErrInvalidSourceDocument
	case KindMissingSignData:
		return ErrMissingSignData
	case KindSignerNotFound:
		return ErrSignerNotFound
	case KindAssetEmbed:
		return ErrAssetEmbed
	case KindConversion:
		return ErrConversion
	}
	return nil
}

// Error is a render failure with enough context to diagnose it from logs.
// It matches its kind's sentinel with errors.Is.
type Error struct {
	Kind       Kind
	DocumentID string
	FieldID    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("render document %s: %s", e.DocumentID, e.Kind)
	if e.FieldID != "" {
		msg += " (field " + e.FieldID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// classify picks the kind for an error escaping a render stage.
func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidSourceDocument):
		return KindInvalidSource
	case errors.Is(err, ErrConversion):
		return KindConversion
	case errors.Is(err, ErrAssetEmbed):
		return KindAssetEmbed
	case errors.Is(err, ErrMissingSignData):
		return KindMissingSignData
	case errors.Is(err, ErrSignerNotFound):
		return KindSignerNotFound
	}
	return KindInternal
}

// newError wraps err unless it already is an *Error.
func newError(kind Kind, documentID string, err error) error {
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: kind, DocumentID: documentID, Err: err}
}
