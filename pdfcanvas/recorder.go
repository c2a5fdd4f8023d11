package pdfcanvas

import (
	"encoding/json"
	"fmt"

	"github.com/arpitWebvedant/E-signature-api/coords"
)

// OpKind names a recorded drawing operation.
type OpKind string

const (
	OpText   OpKind = "text"
	OpImage  OpKind = "image"
	OpAppend OpKind = "append"
)

// Op is one recorded call on a Recorder.
type Op struct {
	Kind  OpKind
	Page  int
	Text  Text
	Image Image
}

// Recorder is an in-memory Canvas that records every call. It backs tests
// and dry runs where no PDF needs to be produced.
type Recorder struct {
	Pages []coords.Size
	// TemplateSize is the size given to appended pages.
	TemplateSize coords.Size
	Ops          []Op
	// FailText, when set, rejects a line of text as a real canvas would.
	FailText func(Text) error
}

// NewRecorder returns a recorder with the given page sizes.
func NewRecorder(pages ...coords.Size) *Recorder {
	r := &Recorder{Pages: pages, TemplateSize: coords.Size{Width: 612, Height: 792}}
	return r
}

func (r *Recorder) PageCount() int { return len(r.Pages) }

func (r *Recorder) PageSize(page int) (coords.Size, error) {
	if page < 1 || page > len(r.Pages) {
		return coords.Size{}, fmt.Errorf("page %d of %d: %w", page, len(r.Pages), ErrNoSuchPage)
	}
	return r.Pages[page-1], nil
}

func (r *Recorder) DrawText(page int, lines ...Text) error {
	if _, err := r.PageSize(page); err != nil {
		return err
	}
	if r.FailText != nil {
		for _, t := range lines {
			if err := r.FailText(t); err != nil {
				return err
			}
		}
	}
	for _, t := range lines {
		r.Ops = append(r.Ops, Op{Kind: OpText, Page: page, Text: t})
	}
	return nil
}

func (r *Recorder) DrawImage(page int, img Image) error {
	if _, err := r.PageSize(page); err != nil {
		return err
	}
	r.Ops = append(r.Ops, Op{Kind: OpImage, Page: page, Image: img})
	return nil
}

func (r *Recorder) AppendPage(template []byte, templatePage int) (int, error) {
	if len(template) == 0 {
		return 0, fmt.Errorf("empty template: %w", ErrInvalidDocument)
	}
	r.Pages = append(r.Pages, r.TemplateSize)
	r.Ops = append(r.Ops, Op{Kind: OpAppend, Page: len(r.Pages)})
	return len(r.Pages), nil
}

// Bytes returns a JSON summary of the operations, not a PDF.
func (r *Recorder) Bytes() ([]byte, error) {
	type summary struct {
		Kind    OpKind  `json:"kind"`
		Page    int     `json:"page"`
		Content string  `json:"content,omitempty"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}
	out := make([]summary, 0, len(r.Ops))
	for _, op := range r.Ops {
		s := summary{Kind: op.Kind, Page: op.Page}
		switch op.Kind {
		case OpText:
			s.Content, s.X, s.Y = op.Text.Content, op.Text.X, op.Text.Y
		case OpImage:
			s.X, s.Y = op.Image.Rect.X, op.Image.Rect.Y
		}
		out = append(out, s)
	}
	return json.Marshal(out)
}

// OpsOn returns the operations recorded on page of the given kind.
func (r *Recorder) OpsOn(page int, kind OpKind) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Page == page && op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}
