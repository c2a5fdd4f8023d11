package signdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TextEntry is one signer's text in a shared field.
type TextEntry struct {
	Email string `json:"email"`
	Text  string `json:"text"`
}

// FieldValue is either a single text or an ordered list of per-signer texts.
// The zero value is an empty scalar.
type FieldValue struct {
	scalar    string
	perSigner []TextEntry
	multi     bool
}

// Scalar builds a single-text value.
func Scalar(text string) FieldValue { return FieldValue{scalar: text} }

// PerSignerText builds a shared multi-signer value.
func PerSignerText(entries ...TextEntry) FieldValue {
	return FieldValue{perSigner: entries, multi: true}
}

// PerSigner reports which variant v holds.
func (v FieldValue) PerSigner() bool { return v.multi }

// Text returns the scalar text; it is empty for per-signer values.
func (v FieldValue) Text() string { return v.scalar }

// Entries returns the per-signer texts in stored order.
func (v FieldValue) Entries() []TextEntry { return v.perSigner }

// For returns the text to render for email. Scalars apply to everyone.
func (v FieldValue) For(email string) (string, bool) {
	if !v.multi {
		return v.scalar, v.scalar != ""
	}
	for _, e := range v.perSigner {
		if SameEmail(e.Email, email) {
			return e.Text, true
		}
	}
	return "", false
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = FieldValue{}
	switch {
	case len(data) == 0 || string(data) == "null":
		return nil
	case data[0] == '[':
		var entries []TextEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("decode per-signer text: %w", err)
		}
		*v = PerSignerText(entries...)
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Scalar(s)
		return nil
	default:
		// Numbers and booleans show up from older clients; render them as typed.
		*v = Scalar(string(data))
		return nil
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.multi {
		return json.Marshal(v.perSigner)
	}
	return json.Marshal(v.scalar)
}

// Signature is one captured signature artifact.
type Signature struct {
	Email       string
	ImageBase64 string
	Typed       string
	// FontSize is in rem; zero means unset.
	FontSize float64
}

// Empty reports whether neither an image nor typed text was captured.
func (s Signature) Empty() bool {
	return strings.TrimSpace(s.ImageBase64) == "" && strings.TrimSpace(s.Typed) == ""
}

type signatureJSON struct {
	Email       string          `json:"email,omitempty"`
	ImageBase64 string          `json:"signatureImageAsBase64,omitempty"`
	Typed       string          `json:"typedSignature,omitempty"`
	FontSize    json.RawMessage `json:"fontSize,omitempty"`
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var sj signatureJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	*s = Signature{Email: sj.Email, ImageBase64: sj.ImageBase64, Typed: sj.Typed}
	if l := rawLength(sj.FontSize); l.Valid {
		s.FontSize = l.Value
	}
	return nil
}

func (s Signature) MarshalJSON() ([]byte, error) {
	sj := signatureJSON{Email: s.Email, ImageBase64: s.ImageBase64, Typed: s.Typed}
	if s.FontSize != 0 {
		sj.FontSize = json.RawMessage(strconv.FormatFloat(s.FontSize, 'f', -1, 64))
	}
	return json.Marshal(sj)
}

// SignatureValue is either a single signature or per-signer signatures.
type SignatureValue struct {
	single    *Signature
	perSigner []Signature
	multi     bool
}

// SingleSignature builds a single-signature value.
func SingleSignature(s Signature) SignatureValue { return SignatureValue{single: &s} }

// PerSignerSignatures builds a per-signer signature value.
func PerSignerSignatures(sigs ...Signature) SignatureValue {
	return SignatureValue{perSigner: sigs, multi: true}
}

func (v SignatureValue) PerSigner() bool { return v.multi }

// Present reports whether any signature data exists.
func (v SignatureValue) Present() bool { return v.single != nil || len(v.perSigner) > 0 }

// Single returns the single signature, if that is the variant held.
func (v SignatureValue) Single() (Signature, bool) {
	if v.single == nil {
		return Signature{}, false
	}
	return *v.single, true
}

// First returns the single signature or, for per-signer data, the first entry.
func (v SignatureValue) First() (Signature, bool) {
	if !v.multi {
		return v.Single()
	}
	if len(v.perSigner) == 0 {
		return Signature{}, false
	}
	return v.perSigner[0], true
}

// For returns the signature to render for email. A single signature applies
// to everyone.
func (v SignatureValue) For(email string) (Signature, bool) {
	if !v.multi {
		return v.Single()
	}
	for _, s := range v.perSigner {
		if SameEmail(s.Email, email) {
			return s, true
		}
	}
	return Signature{}, false
}

func (v *SignatureValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = SignatureValue{}
	switch {
	case len(data) == 0 || string(data) == "null":
		return nil
	case data[0] == '[':
		var sigs []Signature
		if err := json.Unmarshal(data, &sigs); err != nil {
			return fmt.Errorf("decode per-signer signatures: %w", err)
		}
		*v = PerSignerSignatures(sigs...)
		return nil
	case data[0] == '{':
		var s Signature
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = SingleSignature(s)
		return nil
	default:
		return nil
	}
}

func (v SignatureValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.multi:
		return json.Marshal(v.perSigner)
	case v.single != nil:
		return json.Marshal(v.single)
	default:
		return []byte("null"), nil
	}
}
