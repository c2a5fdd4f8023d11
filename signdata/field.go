package signdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/arpitWebvedant/E-signature-api/coords"
)

// FieldType is the closed set of field kinds a renderer knows how to draw.
type FieldType int

const (
	FieldOther FieldType = iota
	FieldName
	FieldDate
	FieldSignature
	FieldInitials
	FieldEmail
)

var fieldTypeNames = map[FieldType]string{
	FieldOther:     "OTHER",
	FieldName:      "NAME",
	FieldDate:      "DATE",
	FieldSignature: "SIGNATURE",
	FieldInitials:  "INITIALS",
	FieldEmail:     "EMAIL",
}

// ParseFieldType maps a stored type name onto the enum; unknown names are
// FieldOther.
func ParseFieldType(s string) FieldType {
	up := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == up {
			return t
		}
	}
	return FieldOther
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return "OTHER"
}

// Field is one placed field of the document.
type Field struct {
	ID          string
	Type        FieldType
	TypeName    string // as stored, kept for tracing unknown kinds
	PageNumber  int    // 1-based
	Box         coords.Box
	SignerEmail string
	Placeholder string
	// RecipientName is the legacy fallback for text fields without text.
	RecipientName string
	CustomText    FieldValue
	Signature     SignatureValue
}

type fieldJSON struct {
	ID          json.RawMessage `json:"id"`
	Type        string          `json:"type"`
	PageNumber  json.RawMessage `json:"pageNumber"`
	PageX       json.RawMessage `json:"pageX"`
	PageY       json.RawMessage `json:"pageY"`
	Width       json.RawMessage `json:"width"`
	Height      json.RawMessage `json:"height"`
	SignerEmail string          `json:"signerEmail"`
	Placeholder string          `json:"placeholder"`
	CustomText  FieldValue      `json:"customText"`
	Signature   SignatureValue  `json:"signature"`
	Recipient   *struct {
		Name string `json:"name"`
	} `json:"recipient"`
}

func (f *Field) UnmarshalJSON(data []byte) error {
	var fj fieldJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return fmt.Errorf("decode field: %w", err)
	}
	*f = Field{
		ID:          rawID(fj.ID),
		Type:        ParseFieldType(fj.Type),
		TypeName:    fj.Type,
		PageNumber:  1,
		SignerEmail: fj.SignerEmail,
		Placeholder: fj.Placeholder,
		CustomText:  fj.CustomText,
		Signature:   fj.Signature,
		Box: coords.Box{
			X:      rawLength(fj.PageX),
			Y:      rawLength(fj.PageY),
			Width:  rawLength(fj.Width),
			Height: rawLength(fj.Height),
		},
	}
	if n := rawLength(fj.PageNumber); n.Valid && n.Value >= 1 {
		f.PageNumber = int(n.Value)
	}
	if fj.Recipient != nil {
		f.RecipientName = fj.Recipient.Name
	}
	return nil
}

// HasPlaceholder reports whether the field targets a text token rather than
// a position.
func (f Field) HasPlaceholder() bool { return strings.TrimSpace(f.Placeholder) != "" }

// Involves reports whether email owns the field or has a per-signer value in
// it.
func (f Field) Involves(email string) bool {
	if SameEmail(f.SignerEmail, email) {
		return true
	}
	if _, ok := f.CustomText.For(email); ok && f.CustomText.PerSigner() {
		return true
	}
	if _, ok := f.Signature.For(email); ok && f.Signature.PerSigner() {
		return true
	}
	return false
}

// rawID renders numeric and string ids alike so they can be compared.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// rawLength accepts numbers and numeric strings; anything else is invalid.
func rawLength(raw json.RawMessage) coords.Length {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return coords.Length{}
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return coords.Known(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return coords.Known(v)
		}
	}
	return coords.Length{}
}
