package pdfcanvas

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// minimalPDF builds a document with n empty pages of the given size and a
// correct cross-reference table.
func minimalPDF(n int, w, h float64) []byte {
	var objs []string
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i := 0; i < n; i++ {
		objs = append(objs, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << >> /Contents %d 0 R >>", w, h, 4+2*i))
		objs = append(objs, "<< /Length 0 >>\nstream\n\nendstream")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestOpenRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), []byte("%PDF-1.4\ngarbage")} {
		if _, err := Open(data); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("Open(%q) error = %v, want ErrInvalidDocument", data, err)
		}
	}
}

func TestOpenReadsPageSizes(t *testing.T) {
	doc, err := Open(minimalPDF(2, 600, 800))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("pages = %d", doc.PageCount())
	}
	size, err := doc.PageSize(2)
	if err != nil || size.Width != 600 || size.Height != 800 {
		t.Fatalf("size = %+v, %v", size, err)
	}
	if _, err := doc.PageSize(3); !errors.Is(err, ErrNoSuchPage) {
		t.Fatalf("page 3 error = %v", err)
	}
}

func TestOpenDocumentWrittenByPdfcpu(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	var pdf bytes.Buffer
	if err := api.ImportImages(nil, &pdf, []io.Reader{&pngBuf}, nil, nil); err != nil {
		t.Fatalf("import images: %v", err)
	}

	doc, err := Open(pdf.Bytes())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("pages = %d", doc.PageCount())
	}
	if size, err := doc.PageSize(1); err != nil || size.Width <= 0 || size.Height <= 0 {
		t.Fatalf("size = %+v, %v", size, err)
	}
	if err := doc.DrawText(1, Text{Content: "100%", X: 10, Y: 10, Size: 12}); err != nil {
		t.Fatalf("draw text: %v", err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	stamped, err := api.HasWatermarks(bytes.NewReader(out), nil)
	if err != nil || !stamped {
		t.Fatalf("stamped = %v, %v", stamped, err)
	}
}

func TestDocumentStampsAndAppends(t *testing.T) {
	doc, err := Open(minimalPDF(1, 600, 800))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := doc.DrawText(1, Text{Content: "Alice", X: 100, Y: 700, Face: fonts.NewStandard(fonts.Helvetica), Size: 12, Color: signdata.ParseColor("#336699")}); err != nil {
		t.Fatalf("draw text: %v", err)
	}

	src := image.NewNRGBA(image.Rect(0, 0, 40, 10))
	src.Set(1, 1, color.NRGBA{A: 255})
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	cache := assets.NewCache()
	res := cache.Embed("data:image/png;base64," + encodeB64(pngBuf.Bytes()))
	if !res.OK() {
		t.Fatalf("embed: %v", res.Err)
	}
	if err := doc.DrawImage(1, Image{Image: res.Image, Rect: coords.Rect{X: 60, Y: 80, Width: 120, Height: 60}}); err != nil {
		t.Fatalf("draw image: %v", err)
	}

	page, err := doc.AppendPage(minimalPDF(2, 612, 792), 1)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if page != 2 || doc.PageCount() != 2 {
		t.Fatalf("appended page = %d, count = %d", page, doc.PageCount())
	}
	if err := doc.DrawText(page, Text{Content: "Certificate", X: 25, Y: 650, Size: 9}); err != nil {
		t.Fatalf("draw on appended page: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	again, err := Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again.PageCount() != 2 {
		t.Fatalf("reopened pages = %d", again.PageCount())
	}
	size, _ := again.PageSize(2)
	if size.Width != 612 || size.Height != 792 {
		t.Fatalf("appended page size = %+v", size)
	}
}

func TestAppendPageRejectsBadTemplate(t *testing.T) {
	doc, err := Open(minimalPDF(1, 600, 800))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := doc.AppendPage([]byte("nope"), 1); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("error = %v", err)
	}
}
