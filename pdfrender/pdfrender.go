// Package pdfrender stamps resolved field values onto the pages of a
// fixed-layout source document.
package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/pdfcanvas"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/resolve"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// State is the renderer's position in its forward-only lifecycle.
type State int

const (
	StateLoaded State = iota
	StateFieldsApplied
	StateCertificatePagesAppended
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFieldsApplied:
		return "fields_applied"
	case StateCertificatePagesAppended:
		return "certificate_pages_appended"
	case StateFinalized:
		return "finalized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrState is returned when a stage runs out of order.
var ErrState = errors.New("render stage out of order")

// Text styling for stamped fields.
const (
	TextSize          = 12.0
	DefaultTypedSize  = 12.0
	FallbackTypedSize = 12.0
)

// Config wires the collaborators of one render.
type Config struct {
	DocumentID string
	// SignerEmail restricts resolution to one signer. Empty resolves each
	// field for the signer that owns it.
	SignerEmail string
	Signers     []signdata.Signer
	Resolver    *resolve.Resolver
	Cache       *assets.Cache
	Handwriting *fonts.Handwriting
	Strategy    recovery.Strategy
	Logger      observability.Logger
	Tracer      observability.Tracer
}

// Renderer applies fields to a canvas. It is used for exactly one render.
type Renderer struct {
	cfg     Config
	canvas  pdfcanvas.Canvas
	state   State
	report  recovery.Report
	drawers map[signdata.FieldType]drawer
	helv    fonts.Face
	// applied holds the fields in draw order.
	applied []signdata.Field
}

// placement is one field ready to draw.
type placement struct {
	field signdata.Field
	value resolve.Value
	page  int
	rect  coords.Rect
	color signdata.Color
	loc   recovery.Location
}

type drawer func(ctx context.Context, p placement) error

// New returns a renderer over canvas in StateLoaded.
func New(canvas pdfcanvas.Canvas, cfg Config) *Renderer {
	if cfg.Resolver == nil {
		cfg.Resolver = resolve.New(resolve.Config{})
	}
	if cfg.Cache == nil {
		cfg.Cache = assets.NewCache()
	}
	if cfg.Handwriting == nil {
		cfg.Handwriting = fonts.NewHandwriting(nil)
	}
	if cfg.Strategy == nil {
		cfg.Strategy = recovery.NewLenientStrategy()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	r := &Renderer{cfg: cfg, canvas: canvas, helv: fonts.NewStandard(fonts.Helvetica)}
	r.drawers = map[signdata.FieldType]drawer{
		signdata.FieldName:      r.drawText,
		signdata.FieldEmail:     r.drawText,
		signdata.FieldInitials:  r.drawText,
		signdata.FieldDate:      r.drawText,
		signdata.FieldOther:     r.drawText,
		signdata.FieldSignature: r.drawSignature,
	}
	return r
}

func (r *Renderer) State() State { return r.state }

// Canvas exposes the canvas for later stages.
func (r *Renderer) Canvas() pdfcanvas.Canvas { return r.canvas }

// Report returns the per-field problems collected so far.
func (r *Renderer) Report() *recovery.Report { return &r.report }

// Applied returns the fields in the order they were drawn.
func (r *Renderer) Applied() []signdata.Field { return r.applied }

// FirstSignature returns the first signature field in draw order.
func (r *Renderer) FirstSignature() (signdata.Field, bool) {
	for _, f := range r.applied {
		if f.Type == signdata.FieldSignature {
			return f, true
		}
	}
	return signdata.Field{}, false
}

func (r *Renderer) advance(from, to State) error {
	if r.state != from {
		return fmt.Errorf("%w: %s -> %s from %s", ErrState, from, to, r.state)
	}
	r.state = to
	return nil
}

// SortFields orders fields by page, then vertical then horizontal position.
func SortFields(fields []signdata.Field) []signdata.Field {
	out := append([]signdata.Field(nil), fields...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		ay, by := a.Box.Y.Value, b.Box.Y.Value
		if math.Abs(ay-by) > 1e-4 {
			return ay < by
		}
		return a.Box.X.Value < b.Box.X.Value
	})
	return out
}

// ApplyFields draws every field and moves to StateFieldsApplied. A per-field
// failure is handed to the strategy; only ActionFail aborts.
func (r *Renderer) ApplyFields(ctx context.Context, fields []signdata.Field) error {
	if r.state != StateLoaded {
		return fmt.Errorf("%w: apply fields in %s", ErrState, r.state)
	}
	ctx, span := r.cfg.Tracer.StartSpan(ctx, "pdfrender.apply_fields")
	defer span.Finish()
	span.SetTag("fields", len(fields))

	r.applied = SortFields(fields)
	for _, f := range r.applied {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return err
		}
		if err := r.applyField(ctx, f); err != nil {
			span.SetError(err)
			return err
		}
	}
	return r.advance(StateLoaded, StateFieldsApplied)
}

func (r *Renderer) applyField(ctx context.Context, f signdata.Field) error {
	loc := recovery.Location{
		DocumentID: r.cfg.DocumentID,
		FieldID:    f.ID,
		FieldType:  f.Type.String(),
		Page:       f.PageNumber,
		Component:  "pdf",
	}
	size, err := r.canvas.PageSize(f.PageNumber)
	if err != nil {
		return r.fail(ctx, loc, recovery.ReasonMissingPage, err)
	}
	email := r.cfg.SignerEmail
	if email == "" {
		email = f.SignerEmail
	}
	value := r.cfg.Resolver.Resolve(f, email)
	if value.Empty() {
		r.report.Skip(loc, recovery.ReasonNoValue, nil)
		return nil
	}
	p := placement{
		field: f,
		value: value,
		page:  f.PageNumber,
		rect:  coords.Map(f.Box, size, coords.BottomLeft),
		color: signdata.SignerColor(r.cfg.Signers, f.SignerEmail),
		loc:   loc,
	}
	draw, ok := r.drawers[f.Type]
	if !ok {
		draw = r.drawText
	}
	return draw(ctx, p)
}

// fail records a skipped field and consults the strategy.
func (r *Renderer) fail(ctx context.Context, loc recovery.Location, reason recovery.Reason, err error) error {
	r.cfg.Logger.Warn("field skipped",
		observability.String(observability.KeyDocumentID, loc.DocumentID),
		observability.String(observability.KeyFieldID, loc.FieldID),
		observability.String(observability.KeyFieldType, loc.FieldType),
		observability.Int(observability.KeyPage, loc.Page),
		observability.String("reason", string(reason)),
		observability.Error("error", err),
	)
	if r.cfg.Strategy.OnError(ctx, err, loc) == recovery.ActionFail {
		return fmt.Errorf("field %s: %w", loc.FieldID, err)
	}
	r.report.Skip(loc, reason, err)
	return nil
}

func (r *Renderer) drawText(ctx context.Context, p placement) error {
	t := pdfcanvas.Text{
		Content: p.value.Text,
		X:       p.rect.X,
		Y:       p.rect.Y + p.rect.Height/2,
		Face:    r.helv,
		Size:    TextSize,
		Color:   p.color,
	}
	if err := r.canvas.DrawText(p.page, t); err != nil {
		return r.fail(ctx, p.loc, recovery.ReasonDraw, err)
	}
	return nil
}

func (r *Renderer) drawSignature(ctx context.Context, p placement) error {
	switch p.value.Kind {
	case resolve.KindTypedSignature:
		return r.drawTyped(ctx, p)
	case resolve.KindImageSignature:
		return r.drawImage(ctx, p)
	}
	return r.drawText(ctx, p)
}

func (r *Renderer) drawTyped(ctx context.Context, p placement) error {
	size := p.value.FontSize
	if size <= 0 {
		size = DefaultTypedSize
	}
	face, err := r.cfg.Handwriting.Face(ctx)
	if err == nil {
		err = r.drawLines(p, face, size)
		if err == nil {
			return nil
		}
	}
	r.cfg.Logger.Warn("handwriting font unavailable, using default font",
		observability.String(observability.KeyFieldID, p.loc.FieldID),
		observability.Error("error", err),
	)
	r.report.Degrade(p.loc, recovery.ReasonFontFallback, err)
	if err := r.drawLines(p, r.helv, FallbackTypedSize); err != nil {
		return r.fail(ctx, p.loc, recovery.ReasonDraw, err)
	}
	return nil
}

// drawLines draws text wrapped to the field width, first line at the
// vertical middle of the field. The lines are drawn as one block so a
// failure leaves nothing behind on the page.
func (r *Renderer) drawLines(p placement, face fonts.Face, size float64) error {
	y := p.rect.Y + p.rect.Height/2
	var lines []pdfcanvas.Text
	for _, line := range WrapText(p.value.Text, face, size, p.rect.Width) {
		lines = append(lines, pdfcanvas.Text{Content: line, X: p.rect.X, Y: y, Face: face, Size: size, Color: p.color})
		y -= size
	}
	return r.canvas.DrawText(p.page, lines...)
}

func (r *Renderer) drawImage(ctx context.Context, p placement) error {
	res := r.cfg.Cache.Embed(p.value.Image)
	if !res.OK() {
		return r.fail(ctx, p.loc, recovery.ReasonAssetEmbed, res.Err)
	}
	if err := r.canvas.DrawImage(p.page, pdfcanvas.Image{Image: res.Image, Rect: p.rect}); err != nil {
		return r.fail(ctx, p.loc, recovery.ReasonDraw, err)
	}
	return nil
}

// AppendPages runs fn against the canvas and moves to
// StateCertificatePagesAppended.
func (r *Renderer) AppendPages(ctx context.Context, fn func(ctx context.Context, c pdfcanvas.Canvas) error) error {
	if r.state != StateFieldsApplied {
		return fmt.Errorf("%w: append pages in %s", ErrState, r.state)
	}
	if fn != nil {
		if err := fn(ctx, r.canvas); err != nil {
			return err
		}
	}
	return r.advance(StateFieldsApplied, StateCertificatePagesAppended)
}

// Finalize serialises the document. Certificate pages are optional, so it is
// valid after either of the previous two states.
func (r *Renderer) Finalize() ([]byte, error) {
	if r.state != StateFieldsApplied && r.state != StateCertificatePagesAppended {
		return nil, fmt.Errorf("%w: finalize in %s", ErrState, r.state)
	}
	out, err := r.canvas.Bytes()
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	r.state = StateFinalized
	return out, nil
}
