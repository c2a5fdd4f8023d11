// Package render turns a source document and its sign data into the finished
// PDF, either the final combined document or one signer's copy.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/certificate"
	"github.com/arpitWebvedant/E-signature-api/convert"
	"github.com/arpitWebvedant/E-signature-api/docxrender"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/pdfcanvas"
	"github.com/arpitWebvedant/E-signature-api/pdfrender"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/resolve"
	"github.com/arpitWebvedant/E-signature-api/signdata"
	"github.com/arpitWebvedant/E-signature-api/source"
)

// ContentType is the MIME type of every render.
const ContentType = "application/pdf"

// Request is one render of an already loaded source.
type Request struct {
	DocumentID string
	Source     []byte
	Format     source.Format
	SignData   signdata.SignData
	// Signers replaces the step 1 roster when non-nil.
	Signers []signdata.Signer
	// SignerEmail restricts the render to one signer. Empty renders the
	// final document.
	SignerEmail string
}

// Output is a finished render.
type Output struct {
	PDF              []byte
	ContentType      string
	RenderID         string
	Format           source.Format
	Report           recovery.Report
	CertificatePages int
}

// CanvasOpener parses PDF source bytes into a canvas.
type CanvasOpener func(data []byte) (pdfcanvas.Canvas, error)

// OpenPDF is the default CanvasOpener.
func OpenPDF(data []byte) (pdfcanvas.Canvas, error) {
	doc, err := pdfcanvas.Open(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Config wires an Engine. Zero values fall back to no-op or default
// collaborators.
type Config struct {
	// Assets supplies the handwriting font and the certificate template.
	Assets     fonts.Provider
	Converter  convert.Converter
	Timestamps certificate.TimestampSource
	// Reason is printed on certificate pages.
	Reason string
	// Location is used for documents that carry no timezone. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
	// Strict fails the render on the first field error instead of skipping
	// the field.
	Strict       bool
	OpenCanvas   CanvasOpener
	AssetOptions []assets.Option
	Logger       observability.Logger
	Tracer       observability.Tracer
	Metrics      observability.Metrics
}

// Engine renders documents. It holds no per-render state and is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Timestamps == nil {
		cfg.Timestamps = certificate.ClockSource{Now: cfg.Now}
	}
	if cfg.OpenCanvas == nil {
		cfg.OpenCanvas = OpenPDF
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NopMetrics()
	}
	return &Engine{cfg: cfg}
}

// pass is the state of one render call. Nothing in it outlives the call.
type pass struct {
	documentID  string
	signerEmail string
	signers     []signdata.Signer
	fields      []signdata.Field
	docSig      string
	resolver    *resolve.Resolver
	cache       *assets.Cache
	handwriting *fonts.Handwriting
	strategy    recovery.Strategy
	log         observability.Logger
}

// Render produces the PDF for req. Missing sign data and unknown signers
// return a nil Output with an *Error of the matching kind.
func (e *Engine) Render(ctx context.Context, req Request) (*Output, error) {
	renderID := uuid.NewString()
	log := e.cfg.Logger.With(
		observability.String(observability.KeyDocumentID, req.DocumentID),
		observability.String(observability.KeyRenderID, renderID),
	)
	if req.SignerEmail != "" {
		log = log.With(observability.String(observability.KeySigner, req.SignerEmail))
	}
	ctx, span := e.cfg.Tracer.StartSpan(ctx, "render")
	defer span.Finish()
	span.SetTag(observability.KeyDocumentID, req.DocumentID)
	span.SetTag(observability.KeyFormat, req.Format.String())

	start := time.Now()
	out, err := e.render(ctx, log, req)
	d := time.Since(start)
	if err != nil {
		kind := classify(err)
		e.cfg.Metrics.ObserveRender(req.Format.String(), string(kind), d)
		span.SetError(err)
		if kind == KindMissingSignData || kind == KindSignerNotFound {
			log.Info("nothing to render", observability.String("reason", string(kind)))
		} else {
			log.Error("render failed",
				observability.String("kind", string(kind)),
				observability.Duration("duration", d),
				observability.Error("error", err),
			)
		}
		return nil, err
	}
	e.cfg.Metrics.ObserveRender(req.Format.String(), "ok", d)
	for _, s := range out.Report.Skipped {
		e.cfg.Metrics.FieldSkipped(string(s.Reason))
	}
	out.RenderID = renderID
	out.ContentType = ContentType
	out.Format = req.Format
	log.Info("render finished",
		observability.String(observability.KeyFormat, req.Format.String()),
		observability.Int("skipped", len(out.Report.Skipped)),
		observability.Int("degraded", len(out.Report.Degraded)),
		observability.Int("certificate_pages", out.CertificatePages),
		observability.Int("bytes", len(out.PDF)),
		observability.Duration("duration", d),
	)
	return out, nil
}

func (e *Engine) render(ctx context.Context, log observability.Logger, req Request) (*Output, error) {
	if req.SignData.Empty() {
		return nil, &Error{Kind: KindMissingSignData, DocumentID: req.DocumentID}
	}
	signers := req.Signers
	if signers == nil {
		s, err := req.SignData.Signers()
		if err != nil {
			return nil, &Error{Kind: KindMissingSignData, DocumentID: req.DocumentID, Err: err}
		}
		signers = s
	}
	fields, err := req.SignData.Fields()
	if err != nil {
		return nil, &Error{Kind: KindMissingSignData, DocumentID: req.DocumentID, Err: err}
	}
	if req.SignerEmail != "" {
		if _, ok := signdata.FindSigner(signers, req.SignerEmail); !ok {
			return nil, &Error{Kind: KindSignerNotFound, DocumentID: req.DocumentID, Err: fmt.Errorf("no roster entry for %s", req.SignerEmail)}
		}
		fields = ForSigner(fields, req.SignerEmail)
	}

	p := e.newPass(log, req, signers, fields)
	log.Info("render started",
		observability.String(observability.KeyFormat, req.Format.String()),
		observability.Int("fields", len(fields)),
		observability.Int("signers", len(signers)),
	)
	if req.Format == source.FormatPDF {
		return e.renderPDF(ctx, p, req.Source)
	}
	return e.renderDOCX(ctx, p, req.Source)
}

func (e *Engine) newPass(log observability.Logger, req Request, signers []signdata.Signer, fields []signdata.Field) *pass {
	meta := req.SignData.Meta()
	loc := e.cfg.Location
	if meta.Timezone != "" {
		if l, err := time.LoadLocation(meta.Timezone); err == nil {
			loc = l
		} else {
			log.Warn("unknown document timezone", observability.String("timezone", meta.Timezone))
		}
	}
	var strategy recovery.Strategy = recovery.NewLenientStrategy()
	if e.cfg.Strict {
		strategy = recovery.NewStrictStrategy()
	}
	docSig := req.SignData.DocumentSignature()
	return &pass{
		documentID:  req.DocumentID,
		signerEmail: req.SignerEmail,
		signers:     signers,
		fields:      fields,
		docSig:      docSig,
		resolver: resolve.New(resolve.Config{
			DateFormat:        meta.DateFormat,
			Location:          loc,
			Now:               e.cfg.Now,
			DocumentSignature: docSig,
			Logger:            log,
		}),
		cache:       assets.NewCache(e.cfg.AssetOptions...),
		handwriting: fonts.NewHandwriting(e.cfg.Assets),
		strategy:    strategy,
		log:         log,
	}
}

func (e *Engine) renderPDF(ctx context.Context, p *pass, src []byte) (*Output, error) {
	canvas, err := e.cfg.OpenCanvas(src)
	if err != nil {
		if errors.Is(err, pdfcanvas.ErrInvalidDocument) || errors.Is(err, pdfcanvas.ErrEncrypted) {
			return nil, &Error{Kind: KindInvalidSource, DocumentID: p.documentID, Err: err}
		}
		return nil, newError(KindInternal, p.documentID, fmt.Errorf("open source: %w", err))
	}
	r := pdfrender.New(canvas, pdfrender.Config{
		DocumentID:  p.documentID,
		SignerEmail: p.signerEmail,
		Signers:     p.signers,
		Resolver:    p.resolver,
		Cache:       p.cache,
		Handwriting: p.handwriting,
		Strategy:    p.strategy,
		Logger:      p.log,
		Tracer:      e.cfg.Tracer,
	})
	if err := r.ApplyFields(ctx, p.fields); err != nil {
		return nil, newError(classify(err), p.documentID, err)
	}

	template, err := e.template(ctx, p)
	if err != nil {
		return nil, newError(KindInternal, p.documentID, err)
	}
	pages := 0
	err = r.AppendPages(ctx, func(ctx context.Context, c pdfcanvas.Canvas) error {
		ctx, span := e.cfg.Tracer.StartSpan(ctx, "render.certificate")
		defer span.Finish()
		synth := certificate.Synthesizer{
			Template:   template,
			Reason:     e.cfg.Reason,
			Timestamps: e.cfg.Timestamps,
			Logger:     p.log,
		}
		n, err := synth.Append(ctx, c, certificate.Input{
			DocumentID:        p.documentID,
			Signers:           p.signers,
			Fields:            r.Applied(),
			DocumentSignature: p.docSig,
			Cache:             p.cache,
			Handwriting:       p.handwriting,
			Report:            r.Report(),
		})
		pages = n
		span.SetTag("pages", n)
		if err != nil {
			span.SetError(err)
		}
		return err
	})
	if err != nil {
		return nil, newError(classify(err), p.documentID, err)
	}
	e.cfg.Metrics.CertificatePages(pages)

	pdf, err := r.Finalize()
	if err != nil {
		return nil, newError(KindInternal, p.documentID, err)
	}
	return &Output{PDF: pdf, Report: *r.Report(), CertificatePages: pages}, nil
}

// template returns the certificate template, or nil when none is installed.
func (e *Engine) template(ctx context.Context, p *pass) ([]byte, error) {
	if e.cfg.Assets == nil {
		p.log.Warn("no asset provider, certificate pages skipped")
		return nil, nil
	}
	data, err := e.cfg.Assets.CertificateTemplate(ctx)
	if errors.Is(err, fonts.ErrAssetMissing) {
		p.log.Warn("certificate template missing, certificate pages skipped", observability.Error("error", err))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load certificate template: %w", err)
	}
	return data, nil
}

func (e *Engine) renderDOCX(ctx context.Context, p *pass, src []byte) (*Output, error) {
	dr := docxrender.New(docxrender.Config{
		DocumentID:  p.documentID,
		SignerEmail: p.signerEmail,
		Signers:     p.signers,
		Resolver:    p.resolver,
		Cache:       p.cache,
		Strategy:    p.strategy,
		Logger:      p.log,
		Tracer:      e.cfg.Tracer,
	})
	docx, err := dr.Render(ctx, src, p.fields)
	if err != nil {
		if errors.Is(err, docxrender.ErrInvalidDocument) {
			return nil, &Error{Kind: KindInvalidSource, DocumentID: p.documentID, Err: err}
		}
		return nil, newError(classify(err), p.documentID, err)
	}
	if e.cfg.Converter == nil {
		return nil, &Error{Kind: KindConversion, DocumentID: p.documentID, Err: errors.New("no converter configured")}
	}
	ctx, span := e.cfg.Tracer.StartSpan(ctx, "render.convert")
	pdf, err := e.cfg.Converter.Convert(ctx, docx)
	span.Finish()
	if err != nil {
		return nil, &Error{Kind: KindConversion, DocumentID: p.documentID, Err: err}
	}
	return &Output{PDF: pdf, Report: *dr.Report()}, nil
}

// ForSigner keeps the fields owned by email or carrying a per-signer value
// for it.
func ForSigner(fields []signdata.Field, email string) []signdata.Field {
	var out []signdata.Field
	for _, f := range fields {
		if f.Involves(email) {
			out = append(out, f)
		}
	}
	return out
}
