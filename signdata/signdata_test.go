package signdata

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `{
  "0": {"step": 0, "data": {"title": "Lease", "data": {"meta": {"dateFormat": "DD/MM/YYYY"}}}},
  "1": {"step": 1, "data": {"signers": [
    {"email": "a@x.com", "name": "Alice", "color": "#ff0000", "status": "SIGNED"},
    {"email": "b@x.com", "name": "Bob", "status": "PENDING"}
  ]}},
  "2": {"step": 2, "data": {"fields": [
    {"id": 1, "type": "NAME", "pageNumber": 1, "pageX": 10, "pageY": "20", "width": 5, "height": 2,
     "signerEmail": "a@x.com", "customText": "Alice"},
    {"id": "2", "type": "signature", "pageNumber": 2, "pageX": 10, "pageY": 20, "width": "abc",
     "signerEmail": "a@x.com",
     "signature": [{"email": "a@x.com", "typedSignature": "Alice", "fontSize": "2"},
                   {"email": "b@x.com", "signatureImageAsBase64": "AAAA"}]},
    {"id": 3, "type": "CHECKBOX", "signerEmail": "b@x.com",
     "customText": [{"email": "a@x.com", "text": "yes"}, {"email": "b@x.com", "text": "no"}]}
  ]}},
  "signature": "ZZZZ"
}`

func TestParseSample(t *testing.T) {
	sd, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	meta := sd.Meta()
	if meta.DateFormat != "DD/MM/YYYY" || meta.Title != "Lease" {
		t.Fatalf("meta = %+v", meta)
	}
	signers, err := sd.Signers()
	if err != nil {
		t.Fatalf("signers: %v", err)
	}
	if len(signers) != 2 || !signers[0].Signed() || signers[1].Signed() {
		t.Fatalf("signers = %+v", signers)
	}
	fields, err := sd.Fields()
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("got %d fields", len(fields))
	}

	name := fields[0]
	if name.ID != "1" || name.Type != FieldName || name.Box.Y.Value != 20 || !name.Box.Y.Valid {
		t.Fatalf("name field = %+v", name)
	}
	if text, ok := name.CustomText.For("anyone@x.com"); !ok || text != "Alice" {
		t.Fatalf("scalar text = %q %v", text, ok)
	}

	sig := fields[1]
	if sig.ID != "2" || sig.Type != FieldSignature || sig.PageNumber != 2 {
		t.Fatalf("signature field = %+v", sig)
	}
	if sig.Box.Width.Valid {
		t.Fatalf("non-numeric width must be invalid")
	}
	a, ok := sig.Signature.For("A@X.com ")
	if !ok || a.Typed != "Alice" || a.FontSize != 2 {
		t.Fatalf("signature for a = %+v %v", a, ok)
	}

	other := fields[2]
	if other.Type != FieldOther || other.TypeName != "CHECKBOX" || other.PageNumber != 1 {
		t.Fatalf("other field = %+v", other)
	}
	if !other.Involves("a@x.com") || other.Involves("c@x.com") {
		t.Fatalf("Involves mismatch")
	}

	if sd.DocumentSignature() != "ZZZZ" {
		t.Fatalf("document signature = %q", sd.DocumentSignature())
	}
}

func TestParseNull(t *testing.T) {
	sd, err := Parse([]byte("null"))
	if err != nil || !sd.Empty() {
		t.Fatalf("null should parse to empty sign data: %v %v", sd, err)
	}
}

func TestMetaDefaults(t *testing.T) {
	sd := SignData{"0": json.RawMessage(`{"data":{"meta":{}}}`)}
	if got := sd.Meta().DateFormat; got != DefaultDateFormat {
		t.Fatalf("date format = %q", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#ff0000", "FF0000"},
		{"00ff7f", "00FF7F"},
		{"#abc", "AABBCC"},
		{"", "000000"},
		{"red", "000000"},
		{"#12345g", "000000"},
	}
	for _, tc := range tests {
		if got := ParseColor(tc.in).Hex(); got != tc.want {
			t.Errorf("ParseColor(%q).Hex() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func rawFieldsOf(t *testing.T, s string) []RawField {
	t.Helper()
	var out []RawField
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("decode raw fields: %v", err)
	}
	return out
}

func TestMergeFieldsUpdatesInPlace(t *testing.T) {
	existing := rawFieldsOf(t, `[{"id":1,"signerEmail":"a@x.com","customText":"A","pageX":5}]`)
	incoming := rawFieldsOf(t, `[{"id":1,"signerEmail":" A@x.com","customText":"A2"},{"id":2,"signerEmail":"b@x.com","customText":"B"}]`)

	merged := MergeFields(existing, incoming)
	if len(merged) != 2 {
		t.Fatalf("merged %d fields, want 2", len(merged))
	}
	got := map[string]string{
		"text0": string(merged[0]["customText"]),
		"x0":    string(merged[0]["pageX"]),
		"text1": string(merged[1]["customText"]),
	}
	want := map[string]string{"text0": `"A2"`, "x0": "5", "text1": `"B"`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if string(existing[0]["customText"]) != `"A"` {
		t.Fatalf("existing slice was mutated")
	}
}

func TestApplyComplete(t *testing.T) {
	existing := SignData{
		"1": json.RawMessage(`{"step":1,"data":{"signers":[{"email":"a@x.com"}]}}`),
		"2": json.RawMessage(`{"step":2,"data":{"fields":[{"id":1,"signerEmail":"a@x.com","customText":"A"}],"keep":true}}`),
	}
	update := SignData{
		"1": json.RawMessage(`{"step":1,"data":{"signers":[{"email":"b@x.com"}]}}`),
		"2": json.RawMessage(`{"step":3,"data":{"fields":[{"id":1,"signerEmail":"a@x.com","customText":"A2"},{"id":2,"signerEmail":"b@x.com","customText":"B"}]}}`),
	}
	out, err := Apply(existing, update, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	fields, err := out.Fields()
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if len(fields) != 2 || fields[0].CustomText.Text() != "A2" || fields[1].ID != "2" {
		t.Fatalf("fields = %+v", fields)
	}
	var step struct {
		Step int                        `json:"step"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(out["2"], &step); err != nil {
		t.Fatalf("decode step: %v", err)
	}
	if step.Step != 3 || string(step.Data["keep"]) != "true" {
		t.Fatalf("step 2 = %+v", step)
	}
	signers, _ := out.Signers()
	if len(signers) != 1 || signers[0].Email != "b@x.com" {
		t.Fatalf("step 1 not replaced: %+v", signers)
	}
}

func TestApplyIncompleteReplaces(t *testing.T) {
	existing := SignData{"2": json.RawMessage(`{"data":{"fields":[{"id":9}]}}`), "3": json.RawMessage(`{}`)}
	update := SignData{"2": json.RawMessage(`{"data":{"fields":[{"id":1},{"id":2}]}}`)}
	out, err := Apply(existing, update, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := out["3"]; ok {
		t.Fatalf("incomplete update must replace everything")
	}
	fields, _ := out.Fields()
	if len(fields) != 2 {
		t.Fatalf("fields = %d", len(fields))
	}
}

func TestFieldValueRoundTrip(t *testing.T) {
	v := PerSignerText(TextEntry{Email: "a@x.com", Text: "Alice"})
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back FieldValue
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.PerSigner() || len(back.Entries()) != 1 {
		t.Fatalf("round trip lost the variant: %+v", back)
	}
}
