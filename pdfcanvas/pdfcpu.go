package pdfcanvas

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
)

// Document is a Canvas backed by pdfcpu. Drawing is queued as stamps and
// applied in one pass by Bytes, so the source is rewritten at most once per
// appended page plus once at the end.
type Document struct {
	base      []byte
	dims      []types.Dim
	stamps    map[int][]*model.Watermark
	templates map[string][]byte
}

// Open parses and validates data as a PDF. Unparsable input yields
// ErrInvalidDocument and encrypted input ErrEncrypted. Page boundaries are
// only resolved on a validated context.
func Open(data []byte) (*Document, error) {
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), newConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if ctx.Encrypt != nil {
		return nil, ErrEncrypted
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: page dimensions: %v", ErrInvalidDocument, err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}
	return &Document{
		base:      data,
		dims:      dims,
		stamps:    make(map[int][]*model.Watermark),
		templates: make(map[string][]byte),
	}, nil
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (d *Document) PageCount() int { return len(d.dims) }

func (d *Document) PageSize(page int) (coords.Size, error) {
	if page < 1 || page > len(d.dims) {
		return coords.Size{}, fmt.Errorf("page %d of %d: %w", page, len(d.dims), ErrNoSuchPage)
	}
	dim := d.dims[page-1]
	return coords.Size{Width: dim.Width, Height: dim.Height}, nil
}

func (d *Document) DrawText(page int, lines ...Text) error {
	if _, err := d.PageSize(page); err != nil {
		return err
	}
	wms := make([]*model.Watermark, 0, len(lines))
	for _, t := range lines {
		wm, err := textStamp(t)
		if err != nil {
			return err
		}
		wms = append(wms, wm)
	}
	d.stamps[page] = append(d.stamps[page], wms...)
	return nil
}

func textStamp(t Text) (*model.Watermark, error) {
	fontName := fonts.Helvetica
	if t.Face != nil {
		fontName = t.Face.Name()
	}
	if tt, ok := t.Face.(*fonts.TrueType); ok {
		if err := installFont(tt); err != nil {
			return nil, err
		}
	}
	points := int(math.Max(1, math.Round(t.Size)))
	desc := fmt.Sprintf("fontname:%s, points:%d, fillcolor:#%s, rotation:0, scalefactor:1 abs, position:bl, offset:%s %s, opacity:1",
		fontName, points, t.Color.Hex(), num(t.X), num(t.Y))
	wm, err := api.TextWatermark(t.Content, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("text stamp: %w", err)
	}
	return wm, nil
}

// maxOversample caps the pixels per point kept when resampling images.
const maxOversample = 4

func (d *Document) DrawImage(page int, img Image) error {
	if _, err := d.PageSize(page); err != nil {
		return err
	}
	if img.Image == nil || img.Image.Decoded() == nil {
		return fmt.Errorf("image stamp: no image")
	}
	r := img.Rect
	src := img.Image.Decoded()
	ppp := math.Max(float64(src.Bounds().Dx())/r.Width, float64(src.Bounds().Dy())/r.Height)
	ppp = math.Min(maxOversample, math.Max(1, ppp))
	w := int(math.Max(1, math.Round(r.Width*ppp)))
	h := int(math.Max(1, math.Round(r.Height*ppp)))

	// Resample to the box aspect ratio so a uniform scale fills the box.
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return fmt.Errorf("image stamp: encode: %w", err)
	}

	desc := fmt.Sprintf("scalefactor:%s abs, rotation:0, position:bl, offset:%s %s, opacity:1",
		num(r.Width/float64(w)), num(r.X), num(r.Y))
	wm, err := api.ImageWatermarkForReader(&buf, desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("image stamp: %w", err)
	}
	d.stamps[page] = append(d.stamps[page], wm)
	return nil
}

func (d *Document) AppendPage(template []byte, templatePage int) (int, error) {
	key := strconv.Itoa(templatePage) + ":" + strconv.Itoa(len(template))
	single, ok := d.templates[key]
	if !ok {
		var out bytes.Buffer
		if err := api.Trim(bytes.NewReader(template), &out, []string{strconv.Itoa(templatePage)}, newConfig()); err != nil {
			return 0, fmt.Errorf("%w: template page %d: %v", ErrInvalidDocument, templatePage, err)
		}
		single = out.Bytes()
		d.templates[key] = single
	}
	dims, err := api.PageDims(bytes.NewReader(single), newConfig())
	if err != nil || len(dims) != 1 {
		return 0, fmt.Errorf("%w: template page dimensions: %v", ErrInvalidDocument, err)
	}

	var merged bytes.Buffer
	rs := []io.ReadSeeker{bytes.NewReader(d.base), bytes.NewReader(single)}
	if err := api.MergeRaw(rs, &merged, false, newConfig()); err != nil {
		return 0, fmt.Errorf("append template page: %w", err)
	}
	d.base = merged.Bytes()
	d.dims = append(d.dims, dims[0])
	return len(d.dims), nil
}

func (d *Document) Bytes() ([]byte, error) {
	if len(d.stamps) == 0 {
		return d.base, nil
	}
	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(d.base), &out, d.stamps, newConfig()); err != nil {
		return nil, fmt.Errorf("apply stamps: %w", err)
	}
	return out.Bytes(), nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

var (
	fontMu    sync.Mutex
	installed = map[string]bool{}
)

// installFont registers a TrueType face with pdfcpu's user font directory.
// pdfcpu keeps user fonts process-wide, so registration is too.
func installFont(tt *fonts.TrueType) error {
	fontMu.Lock()
	defer fontMu.Unlock()
	if installed[tt.Name()] {
		return nil
	}
	dir, err := os.MkdirTemp("", "esign-font-*")
	if err != nil {
		return fmt.Errorf("install font %s: %w", tt.Name(), err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, tt.Name()+".ttf")
	if err := os.WriteFile(path, tt.Data(), 0o600); err != nil {
		return fmt.Errorf("install font %s: %w", tt.Name(), err)
	}
	if err := api.InstallFonts([]string{path}); err != nil {
		return fmt.Errorf("install font %s: %w", tt.Name(), err)
	}
	installed[tt.Name()] = true
	return nil
}
