// Package certificate appends a signing certificate page for every signer who
// completed signing.
package certificate

import (
	"context"
	"fmt"
	"math"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/pdfcanvas"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// Page layout, in points from the lower-left corner of the template page.
const (
	MarginLeft    = 25.0
	NameOffset    = 140.0 // below the page top
	EmailGap      = 60.0  // below the name
	LabelSize     = 9.0
	BoxOffsetX    = 120.0 // right of the left margin
	BoxOffsetY    = 20.0  // above the email line
	BoxWidth      = 140.0
	BoxHeight     = 55.0
	BoxPadding    = 2.0
	TypedMaxSize  = 24.0
	TypedMinSize  = 8.0
	DocumentIDX   = MarginLeft + 200
	DocumentIDY   = 658.0
	DetailsTopY   = 712.0
	DetailsGap    = 15.0
	DetailsInset  = 72.0
	DetailsMaxX   = 1008.0
	TextGray      = 0.4
	DefaultReason = "Signed electronically"
)

// Synthesizer draws certificate pages from a one-page template.
type Synthesizer struct {
	Template []byte
	// TemplatePage is the template page copied for each signer; 0 means 1.
	TemplatePage int
	Reason       string
	Timestamps   TimestampSource
	Logger       observability.Logger
}

// Input is everything the certificate needs from the current render.
type Input struct {
	DocumentID string
	Signers    []signdata.Signer
	// Fields in draw order; the first signature field is the fallback.
	Fields            []signdata.Field
	DocumentSignature string
	Cache             *assets.Cache
	Handwriting       *fonts.Handwriting
	Report            *recovery.Report
}

// Append adds one page per SIGNED signer in roster order and returns the
// number of pages added.
func (s *Synthesizer) Append(ctx context.Context, canvas pdfcanvas.Canvas, in Input) (int, error) {
	log := s.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	if len(s.Template) == 0 {
		return 0, nil
	}
	stamps := s.Timestamps
	if stamps == nil {
		stamps = ClockSource{}
	}
	templatePage := s.TemplatePage
	if templatePage <= 0 {
		templatePage = 1
	}
	if in.Cache == nil {
		in.Cache = assets.NewCache()
	}
	if in.Handwriting == nil {
		in.Handwriting = fonts.NewHandwriting(nil)
	}
	if in.Report == nil {
		in.Report = &recovery.Report{}
	}

	added := 0
	for _, signer := range in.Signers {
		if !signer.Signed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return added, err
		}
		page, err := canvas.AppendPage(s.Template, templatePage)
		if err != nil {
			return added, fmt.Errorf("append certificate page for %s: %w", signer.Email, err)
		}
		added++
		ts, err := stamps.Timestamps(ctx, in.DocumentID, signer)
		if err != nil {
			log.Warn("certificate timestamps unavailable",
				observability.String(observability.KeyDocumentID, in.DocumentID),
				observability.String(observability.KeySigner, signer.Email),
				observability.Error("error", err),
			)
			ts = Timestamps{}
		}
		p := pageWriter{canvas: canvas, page: page, in: in, log: log}
		if err := p.draw(ctx, signer, ts, s.reason()); err != nil {
			return added, fmt.Errorf("draw certificate for %s: %w", signer.Email, err)
		}
	}
	return added, nil
}

func (s *Synthesizer) reason() string {
	if s.Reason == "" {
		return DefaultReason
	}
	return s.Reason
}

type pageWriter struct {
	canvas pdfcanvas.Canvas
	page   int
	in     Input
	log    observability.Logger
}

func (w pageWriter) draw(ctx context.Context, signer signdata.Signer, ts Timestamps, reason string) error {
	size, err := w.canvas.PageSize(w.page)
	if err != nil {
		return err
	}
	bold := fonts.NewStandard(fonts.HelveticaBold)
	gray := signdata.Gray(TextGray)
	label := func(text string, x, y float64) error {
		if text == "" {
			return nil
		}
		return w.canvas.DrawText(w.page, pdfcanvas.Text{Content: text, X: x, Y: y, Face: bold, Size: LabelSize, Color: gray})
	}

	cursorY := size.Height - NameOffset
	if err := label(signer.Name, MarginLeft, cursorY); err != nil {
		return err
	}
	cursorY -= EmailGap
	if err := label(signer.Email, MarginLeft, cursorY); err != nil {
		return err
	}

	box := coords.Rect{
		X:      MarginLeft + BoxOffsetX + BoxPadding,
		Y:      cursorY + BoxOffsetY + BoxPadding,
		Width:  BoxWidth - 2*BoxPadding,
		Height: BoxHeight - 2*BoxPadding,
	}
	sig := LookupSignature(w.in.Fields, signer.Email, w.in.DocumentSignature)
	if err := w.drawSignature(ctx, signer, sig, box, gray); err != nil {
		return err
	}

	if err := label(w.in.DocumentID, DocumentIDX, DocumentIDY); err != nil {
		return err
	}

	rightX := math.Min(size.Width-DetailsInset, DetailsMaxX)
	for i, v := range []string{ts.format(ts.Sent), ts.format(ts.Viewed), ts.format(ts.Signed), reason} {
		x := rightX - bold.TextWidth(v, LabelSize)
		if err := label(v, x, DetailsTopY-float64(i)*DetailsGap); err != nil {
			return err
		}
	}
	return nil
}

func (w pageWriter) drawSignature(ctx context.Context, signer signdata.Signer, sig signdata.Signature, box coords.Rect, color signdata.Color) error {
	loc := recovery.Location{DocumentID: w.in.DocumentID, FieldID: "certificate:" + signer.Email, FieldType: "SIGNATURE", Page: w.page, Component: "certificate"}
	switch {
	case sig.Typed != "":
		var face fonts.Face
		if tt, err := w.in.Handwriting.Face(ctx); err == nil {
			face = tt
		} else {
			w.in.Report.Degrade(loc, recovery.ReasonFontFallback, err)
			face = fonts.NewStandard(fonts.Helvetica)
		}
		t := FitText(sig.Typed, face, box)
		t.Color = color
		if err := w.canvas.DrawText(w.page, t); err != nil {
			if _, isTT := face.(*fonts.TrueType); !isTT {
				return err
			}
			w.in.Report.Degrade(loc, recovery.ReasonFontFallback, err)
			t = FitText(sig.Typed, fonts.NewStandard(fonts.Helvetica), box)
			t.Color = color
			return w.canvas.DrawText(w.page, t)
		}
	case sig.ImageBase64 != "":
		res := w.in.Cache.Embed(sig.ImageBase64)
		if !res.OK() {
			w.log.Warn("certificate signature skipped",
				observability.String(observability.KeySigner, signer.Email),
				observability.Error("error", res.Err),
			)
			w.in.Report.Skip(loc, recovery.ReasonAssetEmbed, res.Err)
			return nil
		}
		return w.canvas.DrawImage(w.page, pdfcanvas.Image{Image: res.Image, Rect: FitImage(res.Image.Aspect(), box)})
	}
	return nil
}

// FitText shrinks text from TypedMaxSize in whole points until it fits box,
// stopping at TypedMinSize, and centres it.
func FitText(text string, face fonts.Face, box coords.Rect) pdfcanvas.Text {
	size := TypedMaxSize
	for size > TypedMinSize {
		if face.TextWidth(text, size) <= box.Width && face.HeightAtSize(size) <= box.Height {
			break
		}
		size--
	}
	w := face.TextWidth(text, size)
	h := face.HeightAtSize(size)
	return pdfcanvas.Text{
		Content: text,
		X:       box.X + (box.Width-w)/2,
		Y:       box.Y + (box.Height-h)/2,
		Face:    face,
		Size:    size,
	}
}

// FitImage scales an image of the given aspect ratio to fit box and centres
// it.
func FitImage(aspect float64, box coords.Rect) coords.Rect {
	if aspect <= 0 {
		aspect = 1
	}
	w, h := box.Width, box.Width/aspect
	if h > box.Height {
		h = box.Height
		w = h * aspect
	}
	return coords.Rect{X: box.X + (box.Width-w)/2, Y: box.Y + (box.Height-h)/2, Width: w, Height: h}
}

// LookupSignature finds the signature to show for email: the signer's entry
// in a per-signer signature field, else a single signature field the signer
// owns, else the first signature field (its first entry when per-signer),
// else the document signature.
func LookupSignature(fields []signdata.Field, email, documentSignature string) signdata.Signature {
	var first *signdata.Field
	for i := range fields {
		f := fields[i]
		if f.Type != signdata.FieldSignature {
			continue
		}
		if first == nil {
			first = &fields[i]
		}
		if f.Signature.PerSigner() {
			if s, ok := f.Signature.For(email); ok {
				return signdata.Signature{ImageBase64: s.ImageBase64, Typed: s.Typed}
			}
			continue
		}
		if signdata.SameEmail(f.SignerEmail, email) {
			s, _ := f.Signature.Single()
			return signdata.Signature{ImageBase64: s.ImageBase64, Typed: s.Typed}
		}
	}
	if first == nil {
		return signdata.Signature{ImageBase64: documentSignature}
	}
	s, _ := first.Signature.First()
	if s.ImageBase64 == "" {
		s.ImageBase64 = documentSignature
	}
	return signdata.Signature{ImageBase64: s.ImageBase64, Typed: s.Typed}
}
