package pdfcanvas

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/arpitWebvedant/E-signature-api/coords"
)

func encodeB64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestRecorder(t *testing.T) {
	r := NewRecorder(coords.Size{Width: 600, Height: 800})
	if err := r.DrawText(1, Text{Content: "hi", X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawText(2, Text{Content: "nope"}); !errors.Is(err, ErrNoSuchPage) {
		t.Fatalf("expected ErrNoSuchPage, got %v", err)
	}
	page, err := r.AppendPage([]byte("%PDF"), 1)
	if err != nil || page != 2 {
		t.Fatalf("append = %d, %v", page, err)
	}
	if len(r.OpsOn(1, OpText)) != 1 || len(r.OpsOn(2, OpAppend)) != 1 {
		t.Fatalf("ops = %+v", r.Ops)
	}
	out, err := r.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	var summary []map[string]any
	if err := json.Unmarshal(out, &summary); err != nil || len(summary) != 2 {
		t.Fatalf("summary = %s, %v", out, err)
	}
}
