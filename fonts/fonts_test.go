package fonts

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-text/typesetting/language"
	"golang.org/x/image/font/gofont/goregular"
)

func TestDetectScript(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect language.Script
	}{
		{"Latin", "Hello World", language.Latin},
		{"Arabic", "مرحبا بالعالم", language.Arabic},
		{"Hebrew", "שלום עולם", language.Hebrew},
		{"Cyrillic", "Привет мир", language.Cyrillic},
		{"Greek", "Γειά σου Κόσμε", language.Greek},
		// Ties keep the script seen first.
		{"Mixed Latin/Arabic (Latin dominant)", "Hello World مرحبا", language.Latin},
		{"Mixed Latin/Arabic (Arabic dominant)", "مرحبا بالعالم Hello", language.Arabic},
		{"CJK (Han)", "你好世界", language.Han},
		{"Hangul", "안녕하세요", language.Hangul},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectScript([]rune(tc.input)); got != tc.expect {
				t.Errorf("Expected %v, got %v", tc.expect, got)
			}
		})
	}
}

func TestLoadTrueTypeMeasures(t *testing.T) {
	face, err := LoadTrueType("fallback", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if face.Name() != "GoRegular" {
		t.Fatalf("name = %q", face.Name())
	}
	w12 := face.TextWidth("Signature", 12)
	w24 := face.TextWidth("Signature", 24)
	if w12 <= 0 || math.Abs(w24-2*w12) > 1e-6 {
		t.Fatalf("widths not proportional: %v %v", w12, w24)
	}
	if face.TextWidth("", 12) != 0 {
		t.Fatalf("empty text has width")
	}
	if h := face.HeightAtSize(10); h <= 5 || h >= 20 {
		t.Fatalf("height at 10pt = %v", h)
	}
}

func TestLoadTrueTypeRejectsGarbage(t *testing.T) {
	if _, err := LoadTrueType("x", nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
	if _, err := LoadTrueType("x", []byte("not a font")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStandardMetrics(t *testing.T) {
	h := NewStandard(Helvetica)
	if got := h.TextWidth("A", 10); math.Abs(got-6.67) > 1e-9 {
		t.Fatalf("Helvetica A at 10pt = %v", got)
	}
	if got := h.HeightAtSize(10); math.Abs(got-11.56) > 1e-9 {
		t.Fatalf("height = %v", got)
	}
	bold := NewStandard(HelveticaBold)
	if bold.TextWidth("Signed", 9) <= h.TextWidth("Signed", 9) {
		t.Fatalf("bold should be wider")
	}
	if NewStandard("Nope").Name() != Helvetica {
		t.Fatalf("unknown core font should fall back to Helvetica")
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	fontPath := filepath.Join(dir, "Caveat.ttf")
	if err := os.WriteFile(fontPath, goregular.TTF, 0o600); err != nil {
		t.Fatal(err)
	}
	p := DirProvider{FontPath: fontPath, TemplatePath: filepath.Join(dir, "missing.pdf")}
	face, err := p.HandwritingFont(context.Background())
	if err != nil {
		t.Fatalf("font: %v", err)
	}
	if len(face.Data()) != len(goregular.TTF) {
		t.Fatalf("font data not kept")
	}
	if _, err := p.CertificateTemplate(context.Background()); !errors.Is(err, ErrAssetMissing) {
		t.Fatalf("missing template error = %v", err)
	}
}
