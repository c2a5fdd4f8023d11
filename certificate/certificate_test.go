package certificate

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/coords"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/pdfcanvas"
	"github.com/arpitWebvedant/E-signature-api/recovery"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

var (
	template = []byte("%PDF-template")
	stamp    = time.Date(2024, time.May, 1, 9, 30, 0, 0, time.UTC)
)

func pngPayload(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func fixedStamps() TimestampSource {
	return TimestampFunc(func(context.Context, string, signdata.Signer) (Timestamps, error) {
		return Timestamps{Sent: stamp, Viewed: stamp.Add(time.Minute), Signed: stamp.Add(2 * time.Minute)}, nil
	})
}

func texts(ops []pdfcanvas.Op) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.Text.Content)
	}
	return out
}

func TestOnePagePerSignedSigner(t *testing.T) {
	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	s := &Synthesizer{Template: template, Timestamps: fixedStamps()}
	n, err := s.Append(context.Background(), rec, Input{
		DocumentID: "doc-1",
		Signers: []signdata.Signer{
			{Email: "a@x.com", Name: "Alice", Status: signdata.StatusSigned},
			{Email: "b@x.com", Name: "Bob", Status: signdata.StatusPending},
			{Email: "c@x.com", Name: "Carol", Status: "signed"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 3, rec.PageCount())

	// Roster order: Alice then Carol.
	require.Contains(t, texts(rec.OpsOn(2, pdfcanvas.OpText)), "Alice")
	require.Contains(t, texts(rec.OpsOn(3, pdfcanvas.OpText)), "Carol")
}

func TestPageLayout(t *testing.T) {
	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	s := &Synthesizer{Template: template, Timestamps: fixedStamps(), Reason: "Approved"}
	_, err := s.Append(context.Background(), rec, Input{
		DocumentID: "doc-9",
		Signers:    []signdata.Signer{{Email: "a@x.com", Name: "Alice", Status: signdata.StatusSigned}},
	})
	require.NoError(t, err)

	byContent := map[string]pdfcanvas.Text{}
	for _, op := range rec.OpsOn(2, pdfcanvas.OpText) {
		byContent[op.Text.Content] = op.Text
	}
	name := byContent["Alice"]
	require.Equal(t, MarginLeft, name.X)
	require.Equal(t, 792-NameOffset, name.Y)
	require.Equal(t, LabelSize, name.Size)
	require.Equal(t, signdata.Gray(TextGray), name.Color)
	require.Equal(t, 792-NameOffset-EmailGap, byContent["a@x.com"].Y)

	id := byContent["doc-9"]
	require.Equal(t, DocumentIDX, id.X)
	require.Equal(t, DocumentIDY, id.Y)

	sent := byContent["2024-05-01T09:30:00.000Z"]
	require.Equal(t, DetailsTopY, sent.Y)
	bold := fonts.NewStandard(fonts.HelveticaBold)
	require.InDelta(t, 612-DetailsInset, sent.X+bold.TextWidth(sent.Content, LabelSize), 1e-9)
	require.Equal(t, DetailsTopY-DetailsGap, byContent["2024-05-01T09:31:00.000Z"].Y)
	require.Equal(t, DetailsTopY-2*DetailsGap, byContent["2024-05-01T09:32:00.000Z"].Y)
	require.Equal(t, DetailsTopY-3*DetailsGap, byContent["Approved"].Y)
}

func TestSignatureImageScaledIntoBox(t *testing.T) {
	img := pngPayload(t, 200, 50)
	fields := []signdata.Field{{
		ID: "1", Type: signdata.FieldSignature, SignerEmail: "a@x.com",
		Signature: signdata.SingleSignature(signdata.Signature{ImageBase64: img}),
	}}
	cache := assets.NewCache()
	first := cache.Embed(img)
	require.True(t, first.OK())

	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	s := &Synthesizer{Template: template, Timestamps: fixedStamps()}
	_, err := s.Append(context.Background(), rec, Input{
		DocumentID: "doc-1",
		Signers:    []signdata.Signer{{Email: "a@x.com", Status: signdata.StatusSigned}},
		Fields:     fields,
		Cache:      cache,
	})
	require.NoError(t, err)

	ops := rec.OpsOn(2, pdfcanvas.OpImage)
	require.Len(t, ops, 1)
	require.Same(t, first.Image, ops[0].Image.Image)
	r := ops[0].Image.Rect
	// 4:1 image in a 136x51 box is width bound.
	require.InDelta(t, 136, r.Width, 1e-9)
	require.InDelta(t, 34, r.Height, 1e-9)
	boxY := 792 - NameOffset - EmailGap + BoxOffsetY + BoxPadding
	require.InDelta(t, boxY+(51-34)/2.0, r.Y, 1e-9)
	require.InDelta(t, MarginLeft+BoxOffsetX+BoxPadding, r.X, 1e-9)
}

func TestFitImageHeightBound(t *testing.T) {
	box := coords.Rect{X: 0, Y: 0, Width: 136, Height: 51}
	r := FitImage(1, box)
	require.InDelta(t, 51, r.Width, 1e-9)
	require.InDelta(t, 51, r.Height, 1e-9)
	require.InDelta(t, (136-51)/2.0, r.X, 1e-9)
}

func TestFitTextShrinks(t *testing.T) {
	face := fonts.NewStandard(fonts.Helvetica)
	box := coords.Rect{X: 10, Y: 20, Width: 136, Height: 51}

	short := FitText("Al", face, box)
	require.Equal(t, TypedMaxSize, short.Size)
	require.InDelta(t, 10+(136-face.TextWidth("Al", TypedMaxSize))/2, short.X, 1e-9)

	long := FitText("Alexandra Montgomery-Smith", face, box)
	require.Less(t, long.Size, TypedMaxSize)
	require.GreaterOrEqual(t, long.Size, TypedMinSize)
	require.LessOrEqual(t, face.TextWidth(long.Content, long.Size), box.Width)
	require.Equal(t, math.Trunc(long.Size), long.Size)

	huge := FitText("an extremely long typed signature that will never fit the certificate box", face, box)
	require.Equal(t, TypedMinSize, huge.Size)
}

func TestTypedSignatureUsesFallbackFont(t *testing.T) {
	fields := []signdata.Field{{
		ID: "1", Type: signdata.FieldSignature,
		Signature: signdata.PerSignerSignatures(signdata.Signature{Email: "A@x.com", Typed: "Alice"}),
	}}
	report := &recovery.Report{}
	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	s := &Synthesizer{Template: template, Timestamps: fixedStamps()}
	_, err := s.Append(context.Background(), rec, Input{
		Signers: []signdata.Signer{{Email: "a@x.com", Status: signdata.StatusSigned}},
		Fields:  fields,
		Report:  report,
	})
	require.NoError(t, err)
	require.Contains(t, texts(rec.OpsOn(2, pdfcanvas.OpText)), "Alice")
	require.Len(t, report.Degraded, 1)
	require.ErrorIs(t, report.Degraded[0].Err, fonts.ErrAssetMissing)
}

func TestLookupSignature(t *testing.T) {
	img := "aW1n"
	fields := []signdata.Field{
		{ID: "n", Type: signdata.FieldName},
		{ID: "1", Type: signdata.FieldSignature, SignerEmail: "first@x.com",
			Signature: signdata.SingleSignature(signdata.Signature{ImageBase64: "Zmlyc3Q="})},
		{ID: "2", Type: signdata.FieldSignature,
			Signature: signdata.PerSignerSignatures(signdata.Signature{Email: "b@x.com", Typed: "Bee", ImageBase64: img})},
		{ID: "3", Type: signdata.FieldSignature, SignerEmail: "c@x.com",
			Signature: signdata.SingleSignature(signdata.Signature{ImageBase64: img})},
	}

	b := LookupSignature(fields, "b@x.com", "")
	require.Equal(t, "Bee", b.Typed)

	c := LookupSignature(fields, "C@X.com", "")
	require.Equal(t, img, c.ImageBase64)

	other := LookupSignature(fields, "z@x.com", "")
	require.Equal(t, "Zmlyc3Q=", other.ImageBase64)

	none := LookupSignature(fields[:1], "z@x.com", "ZG9j")
	require.Equal(t, "ZG9j", none.ImageBase64)
}

func TestLookupSignatureFirstFieldPerSigner(t *testing.T) {
	fields := []signdata.Field{
		{ID: "1", Type: signdata.FieldSignature, Signature: signdata.PerSignerSignatures(
			signdata.Signature{Email: "a@x.com", Typed: "Ada"},
			signdata.Signature{Email: "b@x.com", ImageBase64: "Yg=="},
		)},
		{ID: "2", Type: signdata.FieldSignature, SignerEmail: "c@x.com",
			Signature: signdata.SingleSignature(signdata.Signature{ImageBase64: "Yw=="})},
	}

	got := LookupSignature(fields, "z@x.com", "ZG9j")
	require.Equal(t, "Ada", got.Typed)
	require.Equal(t, "ZG9j", got.ImageBase64)

	empty := []signdata.Field{{ID: "1", Type: signdata.FieldSignature, Signature: signdata.PerSignerSignatures()}}
	got = LookupSignature(empty, "z@x.com", "ZG9j")
	require.Equal(t, signdata.Signature{ImageBase64: "ZG9j"}, got)
}

func TestNoTemplateAddsNothing(t *testing.T) {
	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	n, err := (&Synthesizer{}).Append(context.Background(), rec, Input{
		Signers: []signdata.Signer{{Email: "a@x.com", Status: signdata.StatusSigned}},
	})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, rec.Ops)
}

func TestTimestampErrorsLeaveDetailsBlank(t *testing.T) {
	rec := pdfcanvas.NewRecorder(coords.Size{Width: 612, Height: 792})
	s := &Synthesizer{
		Template: template,
		Timestamps: TimestampFunc(func(context.Context, string, signdata.Signer) (Timestamps, error) {
			return Timestamps{}, errors.New("audit log down")
		}),
	}
	_, err := s.Append(context.Background(), rec, Input{
		Signers: []signdata.Signer{{Email: "a@x.com", Name: "Alice", Status: signdata.StatusSigned}},
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Alice", "a@x.com", DefaultReason}, texts(rec.OpsOn(2, pdfcanvas.OpText)))
}

func TestClockSource(t *testing.T) {
	ts, err := ClockSource{Now: func() time.Time { return stamp }}.Timestamps(context.Background(), "d", signdata.Signer{})
	require.NoError(t, err)
	require.Equal(t, stamp, ts.Signed)
	require.Equal(t, "2024-05-01T09:30:00.000Z", ts.format(ts.Sent))
	require.Empty(t, ts.format(time.Time{}))
}
