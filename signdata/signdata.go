// Package signdata models the step-indexed signing payload stored alongside a
// document: metadata (step 0), the signer roster (step 1) and the field list
// (step 2).
package signdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step keys used by the signing wizard.
const (
	StepMeta    = "0"
	StepSigners = "1"
	StepFields  = "2"
)

// DefaultDateFormat is used when the document carries no date pattern.
const DefaultDateFormat = "MM/DD/YYYY"

// SignData is the raw step-indexed payload. Unknown keys are preserved so that
// updates round-trip without loss.
type SignData map[string]json.RawMessage

// Parse decodes a sign-data document. A JSON null or empty input yields a nil
// SignData.
func Parse(data []byte) (SignData, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var sd SignData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("decode sign data: %w", err)
	}
	return sd, nil
}

// Empty reports whether there is nothing to render from.
func (sd SignData) Empty() bool { return len(sd) == 0 }

type step struct {
	Step json.RawMessage `json:"step,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (sd SignData) stepData(key string) json.RawMessage {
	raw, ok := sd[key]
	if !ok {
		return nil
	}
	var s step
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s.Data
}

// Meta is the document metadata carried by step 0.
type Meta struct {
	Title      string
	DateFormat string
	Timezone   string
	Language   string
}

type metaBody struct {
	DateFormat string `json:"dateFormat"`
	Timezone   string `json:"timezone"`
	Language   string `json:"language"`
}

type metaJSON struct {
	Title string    `json:"title"`
	Meta  *metaBody `json:"meta"`
	Data  *struct {
		Title string    `json:"title"`
		Meta  *metaBody `json:"meta"`
	} `json:"data"`
}

// Meta returns step 0 metadata. Both `data.meta` and the doubly nested
// `data.data.meta` shapes are accepted; the date format defaults to
// DefaultDateFormat.
func (sd SignData) Meta() Meta {
	m := Meta{DateFormat: DefaultDateFormat}
	raw := sd.stepData(StepMeta)
	if raw == nil {
		return m
	}
	var mj metaJSON
	if err := json.Unmarshal(raw, &mj); err != nil {
		return m
	}
	m.Title = mj.Title
	body := mj.Meta
	if mj.Data != nil {
		if m.Title == "" {
			m.Title = mj.Data.Title
		}
		if mj.Data.Meta != nil {
			body = mj.Data.Meta
		}
	}
	if body != nil {
		if body.DateFormat != "" {
			m.DateFormat = body.DateFormat
		}
		m.Timezone = body.Timezone
		m.Language = body.Language
	}
	return m
}

// Signers returns the roster from step 1 in stored order.
func (sd SignData) Signers() ([]Signer, error) {
	raw := sd.stepData(StepSigners)
	if raw == nil {
		return nil, nil
	}
	var body struct {
		Signers []Signer `json:"signers"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode signers: %w", err)
	}
	return body.Signers, nil
}

// Fields returns the field list from step 2.
func (sd SignData) Fields() ([]Field, error) {
	raw := sd.stepData(StepFields)
	if raw == nil {
		return nil, nil
	}
	var body struct {
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return body.Fields, nil
}

// DocumentSignature returns the document-level signature image, used when a
// signature field has no image of its own.
func (sd SignData) DocumentSignature() string {
	raw, ok := sd["signature"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Status is a signer's progress through the signing flow.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusSigned   Status = "SIGNED"
	StatusRejected Status = "REJECTED"
)

// Signer is one roster entry.
type Signer struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Status Status `json:"status,omitempty"`
}

// Signed reports whether the signer completed signing.
func (s Signer) Signed() bool {
	return Status(strings.ToUpper(string(s.Status))) == StatusSigned
}

// SameEmail compares addresses the way the roster does: trimmed and
// case-insensitive.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FindSigner returns the roster entry for email.
func FindSigner(signers []Signer, email string) (Signer, bool) {
	for _, s := range signers {
		if SameEmail(s.Email, email) {
			return s, true
		}
	}
	return Signer{}, false
}
