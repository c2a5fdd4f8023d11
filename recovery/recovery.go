// Package recovery decides what happens when a single field cannot be
// rendered and records the fields that were skipped.
package recovery

import "fmt"

type Strategy interface {
	OnError(ctx Context, err error, location Location) Action
}

// Location identifies the field being rendered when an error occurred.
type Location struct {
	DocumentID string
	FieldID    string
	FieldType  string
	Page       int
	Component  string
}

func (l Location) String() string {
	return fmt.Sprintf("%s field %s (%s) page %d", l.Component, l.FieldID, l.FieldType, l.Page)
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionWarn
)

type Context interface{ Done() <-chan struct{} }

// Reason classifies why a field was skipped.
type Reason string

const (
	ReasonAssetEmbed   Reason = "asset_embed"
	ReasonFontFallback Reason = "font_fallback"
	ReasonMissingPage  Reason = "missing_page"
	ReasonNoValue      Reason = "no_value"
	ReasonDraw         Reason = "draw"
	ReasonPlaceholder  Reason = "placeholder_not_found"
)

// Skipped is one field that was not rendered, or rendered degraded.
type Skipped struct {
	Location Location
	Reason   Reason
	Err      error
}

// Report lists the per-field problems of one render.
type Report struct {
	Skipped []Skipped
	// Degraded holds fields that were drawn with a fallback, such as the
	// default font in place of the handwriting font.
	Degraded []Skipped
}

func (r *Report) Skip(loc Location, reason Reason, err error) {
	r.Skipped = append(r.Skipped, Skipped{Location: loc, Reason: reason, Err: err})
}

func (r *Report) Degrade(loc Location, reason Reason, err error) {
	r.Degraded = append(r.Degraded, Skipped{Location: loc, Reason: reason, Err: err})
}

// SkippedIDs returns the ids of skipped fields in the order they were hit.
func (r Report) SkippedIDs() []string {
	ids := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		ids = append(ids, s.Location.FieldID)
	}
	return ids
}

// Clean reports whether every field rendered as stored.
func (r Report) Clean() bool { return len(r.Skipped) == 0 && len(r.Degraded) == 0 }
