// Package docxrender injects resolved field values into a WordprocessingML
// (DOCX) document, either by replacing placeholder tokens in the text or by
// anchoring text boxes and pictures at page positions.
package docxrender

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/resolve"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// ErrInvalidDocument is returned for sources that are not a DOCX package.
var ErrInvalidDocument = errors.New("invalid docx document")

// Mode is how fields are placed.
type Mode int

const (
	// ModePositioning anchors each field at its mapped page position.
	ModePositioning Mode = iota
	// ModePlaceholder replaces tokens in the document text.
	ModePlaceholder
)

func (m Mode) String() string {
	if m == ModePlaceholder {
		return "placeholder"
	}
	return "positioning"
}

// RowTolerance is the vertical distance, in stored units, within which two
// fields count as the same row and are ordered left to right.
const RowTolerance = 5

// Config wires the collaborators of one render.
type Config struct {
	DocumentID string
	// SignerEmail restricts resolution to one signer. Empty resolves each
	// field for the signer that owns it.
	SignerEmail string
	Signers     []signdata.Signer
	Resolver    *resolve.Resolver
	Cache       *assets.Cache
	Strategy    recovery.Strategy
	Logger      observability.Logger
	Tracer      observability.Tracer
}

// Renderer injects fields into one DOCX package.
type Renderer struct {
	cfg    Config
	report recovery.Report
}

func New(cfg Config) *Renderer {
	if cfg.Resolver == nil {
		cfg.Resolver = resolve.New(resolve.Config{})
	}
	if cfg.Cache == nil {
		cfg.Cache = assets.NewCache()
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
	return &Renderer{cfg: cfg}
}

// Report returns the per-field problems of the last Render.
func (r *Renderer) Report() *recovery.Report { return &r.report }

// Validate checks that src is a readable DOCX package with a main document
// part.
func Validate(src []byte) error {
	a, err := openArchive(src)
	if err != nil {
		return err
	}
	_, _, err = a.read(partDocument)
	return err
}

// ModeFor picks placeholder mode when any field carries a placeholder.
func ModeFor(fields []signdata.Field) Mode {
	for _, f := range fields {
		if f.HasPlaceholder() {
			return ModePlaceholder
		}
	}
	return ModePositioning
}

// Render returns src with fields injected. Without fields src is returned
// unchanged once it has been checked to be a DOCX package.
func (r *Renderer) Render(ctx context.Context, src []byte, fields []signdata.Field) ([]byte, error) {
	ctx, span := r.cfg.Tracer.StartSpan(ctx, "docxrender.render")
	defer span.Finish()

	a, err := openArchive(src)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if len(fields) == 0 {
		return src, nil
	}
	mode := ModeFor(fields)
	span.SetTag("mode", mode.String())
	r.cfg.Logger.Debug("injecting docx fields",
		observability.String(observability.KeyDocumentID, r.cfg.DocumentID),
		observability.String("mode", mode.String()),
		observability.Int("fields", len(fields)),
	)

	s, err := newSession(r, a)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if mode == ModePlaceholder {
		err = s.placeholders(ctx, fields)
	} else {
		err = s.positions(ctx, fields)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	out, err := s.finish()
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return out, nil
}

// session is the mutable state of one injection pass.
type session struct {
	r        *Renderer
	a        *archive
	doc      string
	rels     string
	nextRel  int
	nextDoc  int
	nextImg  int
	newRels  []string
	mediaExt map[string]string
}

func newSession(r *Renderer, a *archive) (*session, error) {
	raw, _, err := a.read(partDocument)
	if err != nil {
		return nil, err
	}
	rels := emptyRels
	if data, ok, err := a.read(partRels); err != nil {
		return nil, err
	} else if ok {
		rels = string(data)
	}
	doc := ensureNamespaces(string(raw))
	return &session{
		r:        r,
		a:        a,
		doc:      doc,
		rels:     rels,
		nextRel:  maxID(reRelID, rels) + 1,
		nextDoc:  maxID(reDocPrID, doc) + 1,
		nextImg:  1,
		mediaExt: map[string]string{},
	}, nil
}

func (s *session) location(f signdata.Field) recovery.Location {
	return recovery.Location{
		DocumentID: s.r.cfg.DocumentID,
		FieldID:    f.ID,
		FieldType:  f.Type.String(),
		Page:       f.PageNumber,
		Component:  "docx",
	}
}

func (s *session) resolve(f signdata.Field) resolve.Value {
	email := s.r.cfg.SignerEmail
	if email == "" {
		email = f.SignerEmail
	}
	return s.r.cfg.Resolver.Resolve(f, email)
}

func (s *session) fail(ctx context.Context, loc recovery.Location, reason recovery.Reason, err error) error {
	s.r.cfg.Logger.Warn("field skipped",
		observability.String(observability.KeyDocumentID, loc.DocumentID),
		observability.String(observability.KeyFieldID, loc.FieldID),
		observability.String(observability.KeyFieldType, loc.FieldType),
		observability.String("reason", string(reason)),
		observability.Error("error", err),
	)
	if s.r.cfg.Strategy.OnError(ctx, err, loc) == recovery.ActionFail {
		return fmt.Errorf("field %s: %w", loc.FieldID, err)
	}
	s.r.report.Skip(loc, reason, err)
	return nil
}

// addImage stores the payload as a media part with a fresh relationship and
// returns the relationship number. Media names are chosen independently of
// relationship ids and never replace an existing part.
func (s *session) addImage(img *assets.Image) int {
	id := s.nextRel
	s.nextRel++
	name := s.mediaName(img.Format.Ext())
	s.a.write(mediaDir+name, img.Data)
	s.newRels = append(s.newRels, imageRelationship(id, "media/"+name))
	s.mediaExt[img.Format.Ext()] = img.Format.ContentType()
	return id
}

func (s *session) mediaName(ext string) string {
	for {
		name := fmt.Sprintf("image%d.%s", s.nextImg, ext)
		s.nextImg++
		if !s.a.has(mediaDir + name) {
			return name
		}
	}
}

func (s *session) docPr() int {
	id := s.nextDoc
	s.nextDoc++
	return id
}

func (s *session) placeholders(ctx context.Context, fields []signdata.Field) error {
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return err
		}
		loc := s.location(f)
		if !f.HasPlaceholder() {
			s.r.report.Skip(loc, recovery.ReasonPlaceholder, nil)
			continue
		}
		v := s.resolve(f)
		if v.Empty() {
			s.r.report.Skip(loc, recovery.ReasonNoValue, nil)
			continue
		}
		var n int
		if v.Kind == resolve.KindImageSignature {
			res := s.r.cfg.Cache.Embed(v.Image)
			if !res.OK() {
				if err := s.fail(ctx, loc, recovery.ReasonAssetEmbed, res.Err); err != nil {
					return err
				}
				continue
			}
			if !placeholderPattern(f.Placeholder).MatchString(s.doc) {
				s.r.report.Skip(loc, recovery.ReasonPlaceholder, nil)
				continue
			}
			rel := s.addImage(res.Image)
			s.doc, n = spliceRun(s.doc, f.Placeholder, func() string {
				return inlineImageRun(s.docPr(), rel)
			})
		} else {
			s.doc, n = replaceToken(s.doc, f.Placeholder, v.Text)
		}
		if n == 0 {
			s.r.report.Skip(loc, recovery.ReasonPlaceholder, nil)
		}
	}
	return nil
}

// SortForPositioning groups fields by page in ascending order and orders each
// page top to bottom, treating rows within RowTolerance as one line.
func SortForPositioning(fields []signdata.Field) []signdata.Field {
	pages := map[int][]signdata.Field{}
	var order []int
	for _, f := range fields {
		if _, ok := pages[f.PageNumber]; !ok {
			order = append(order, f.PageNumber)
		}
		pages[f.PageNumber] = append(pages[f.PageNumber], f)
	}
	sort.Ints(order)
	out := make([]signdata.Field, 0, len(fields))
	for _, p := range order {
		group := pages[p]
		sort.SliceStable(group, func(i, j int) bool {
			dy := group[i].Box.Y.Value - group[j].Box.Y.Value
			if dy > -RowTolerance && dy < RowTolerance {
				return group[i].Box.X.Value < group[j].Box.X.Value
			}
			return dy < 0
		})
		out = append(out, group...)
	}
	return out
}

func (s *session) positions(ctx context.Context, fields []signdata.Field) error {
	var content strings.Builder
	for _, f := range SortForPositioning(fields) {
		if err := ctx.Err(); err != nil {
			return err
		}
		loc := s.location(f)
		v := s.resolve(f)
		if v.Empty() {
			s.r.report.Skip(loc, recovery.ReasonNoValue, nil)
			continue
		}
		e := coords.MapEMU(f.Box)
		a := anchor{x: e.X, y: e.Y, width: e.Width, height: e.Height}
		if v.Kind == resolve.KindImageSignature {
			res := s.r.cfg.Cache.Embed(v.Image)
			if !res.OK() {
				if err := s.fail(ctx, loc, recovery.ReasonAssetEmbed, res.Err); err != nil {
					return err
				}
				continue
			}
			rel := s.addImage(res.Image)
			a.docPrID = s.docPr()
			a.name = fmt.Sprintf("Signature_%d", a.docPrID)
			content.WriteString(a.picture(rel))
			continue
		}
		a.docPrID = s.docPr()
		a.name = fmt.Sprintf("%s_%d", f.Type, a.docPrID)
		hex := signdata.SignerColor(s.r.cfg.Signers, f.SignerEmail).Hex()
		content.WriteString(a.textBox(v.Text, hex))
	}
	if content.Len() == 0 {
		return nil
	}
	doc, ok := insertAfterBody(s.doc, content.String())
	if !ok {
		return fmt.Errorf("%w: no w:body element", ErrInvalidDocument)
	}
	s.doc = doc
	return nil
}

func (s *session) finish() ([]byte, error) {
	s.a.write(partDocument, []byte(s.doc))
	if len(s.newRels) > 0 {
		s.a.write(partRels, []byte(addRelationships(s.rels, s.newRels)))
	}
	if len(s.mediaExt) > 0 {
		ct, ok, err := s.a.read(partContentTypes)
		if err != nil {
			return nil, err
		}
		if ok {
			s.a.write(partContentTypes, []byte(ensureContentTypes(string(ct), s.mediaExt)))
		}
	}
	return s.a.bytes()
}
