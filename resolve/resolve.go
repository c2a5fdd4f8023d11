// Package resolve turns a stored field into the single concrete value to draw
// for one signer.
package resolve

import (
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"

	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// Kind is the shape of a resolved value.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindTypedSignature
	KindImageSignature
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTypedSignature:
		return "typed_signature"
	case KindImageSignature:
		return "image_signature"
	}
	return "none"
}

// Value is what a renderer draws for one field instance.
type Value struct {
	Kind Kind
	// Text holds plain text or the typed signature.
	Text string
	// Image holds the base64 or data-URL image payload.
	Image string
	// FontSize is the typed signature size in points; zero means default.
	FontSize float64
}

// Empty reports whether nothing should be drawn.
func (v Value) Empty() bool {
	switch v.Kind {
	case KindText, KindTypedSignature:
		return v.Text == ""
	case KindImageSignature:
		return v.Image == ""
	}
	return true
}

// Config controls date handling and fallbacks.
type Config struct {
	// DateFormat is a moment-style pattern; empty means MM/DD/YYYY.
	DateFormat string
	// Location is used for parsing and formatting dates. Nil means UTC.
	Location *time.Location
	// Now supplies the fallback date. Nil means time.Now.
	Now func() time.Time
	// DocumentSignature is the image used when a signature field carries none.
	DocumentSignature string
	Logger            observability.Logger
}

// Resolver resolves the fields of one document. It is safe for concurrent use.
type Resolver struct {
	cfg    Config
	policy *bluemonday.Policy
}

func New(cfg Config) *Resolver {
	if cfg.DateFormat == "" {
		cfg.DateFormat = signdata.DefaultDateFormat
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Resolver{cfg: cfg, policy: bluemonday.StrictPolicy()}
}

// Resolve picks the value of f for signerEmail. It never fails; missing data
// yields an empty value that callers skip.
func (r *Resolver) Resolve(f signdata.Field, signerEmail string) Value {
	var v Value
	switch f.Type {
	case signdata.FieldSignature:
		v = r.signature(f, signerEmail)
	case signdata.FieldDate:
		text, _ := f.CustomText.For(signerEmail)
		v = Value{Kind: KindText, Text: r.NormalizeDate(r.clean(text))}
	default:
		text, ok := f.CustomText.For(signerEmail)
		if !ok && !f.CustomText.PerSigner() {
			text = f.RecipientName
		}
		v = Value{Kind: KindText, Text: r.clean(text)}
	}
	if v.Empty() {
		r.cfg.Logger.Debug("field has no value",
			observability.String(observability.KeyFieldID, f.ID),
			observability.String(observability.KeyFieldType, f.Type.String()),
			observability.String(observability.KeySigner, signerEmail),
		)
	}
	return v
}

func (r *Resolver) signature(f signdata.Field, signerEmail string) Value {
	sig, _ := f.Signature.For(signerEmail)
	if typed := r.clean(sig.Typed); typed != "" {
		v := Value{Kind: KindTypedSignature, Text: typed}
		if sig.FontSize > 0 {
			v.FontSize = coords.RemToPoints(sig.FontSize)
		}
		return v
	}
	img := strings.TrimSpace(sig.ImageBase64)
	if img == "" {
		img = strings.TrimSpace(r.cfg.DocumentSignature)
	}
	if img == "" {
		return Value{}
	}
	return Value{Kind: KindImageSignature, Image: img}
}

// NormalizeDate parses text permissively and formats it with the configured
// pattern. Empty or unparsable text becomes today's date.
func (r *Resolver) NormalizeDate(text string) string {
	text = strings.TrimSpace(text)
	t := r.cfg.Now().In(r.cfg.Location)
	if text != "" {
		parsed, err := dateparse.ParseIn(text, r.cfg.Location)
		if err == nil {
			t = parsed.In(r.cfg.Location)
		} else {
			r.cfg.Logger.Debug("date not parsable, using current date",
				observability.String("value", text),
				observability.Error("error", err),
			)
		}
	}
	return FormatDate(t, r.cfg.DateFormat)
}

// clean strips markup from user supplied text. The sanitizer escapes
// entities, which are turned back into plain characters for drawing.
func (r *Resolver) clean(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(r.policy.Sanitize(s)))
}
