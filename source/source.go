// Package source turns a stored document record into the bytes of the
// original upload and tells which renderer it needs.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arpitWebvedant/E-signature-api/assets"
	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// Kind is how a record stores its payload.
type Kind string

const (
	KindBytes   Kind = "BYTES"
	KindBytes64 Kind = "BYTES_64"
	KindS3Path  Kind = "S3_PATH"
)

// Format is the source document family.
type Format int

const (
	FormatDOCX Format = iota
	FormatPDF
)

func (f Format) String() string {
	if f == FormatPDF {
		return "pdf"
	}
	return "docx"
}

var (
	// ErrEmpty is returned when a record carries no payload.
	ErrEmpty = errors.New("document record has no data")
	// ErrUnknownKind is returned for unsupported storage kinds.
	ErrUnknownKind = errors.New("unknown document data type")
	// ErrNoFetcher is returned for remote records when no fetcher is set.
	ErrNoFetcher = errors.New("no object fetcher configured")
)

// Record is the stored document data row.
type Record struct {
	Type Kind
	// Data is the payload or, for S3_PATH, the object key.
	Data     string
	FileType string
	MimeType string
	// InitialData is the base64 of the original upload. When present it is
	// what gets rendered.
	InitialData string
}

// Document is a stored document: its sign data and the record of its upload.
type Document struct {
	ID       string
	Title    string
	SignData signdata.SignData
	Record   Record
}

// Key returns the object key of a remote record. Keys stored as a JSON
// object with a "key" member are accepted too.
func (r Record) Key() string {
	k := strings.TrimSpace(r.Data)
	if strings.HasPrefix(k, "{") {
		var v struct {
			Key string `json:"key"`
		}
		if json.Unmarshal([]byte(k), &v) == nil && v.Key != "" {
			return v.Key
		}
	}
	return k
}

// DetectFormat reads the record's file type, then its MIME type, then the
// object key suffix. Anything unrecognised is treated as DOCX.
func DetectFormat(r Record) Format {
	t := strings.ToLower(r.FileType)
	if t == "" {
		t = strings.ToLower(r.MimeType)
	}
	switch {
	case strings.Contains(t, "pdf"):
		return FormatPDF
	case strings.Contains(t, "word"), strings.Contains(t, "docx"):
		return FormatDOCX
	}
	if strings.HasSuffix(strings.ToLower(r.Key()), ".pdf") {
		return FormatPDF
	}
	return FormatDOCX
}

// Fetcher reads an object from remote storage.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Loader resolves records to bytes.
type Loader struct {
	Fetcher Fetcher
}

// Load returns the original upload of r.
func (l Loader) Load(ctx context.Context, r Record) ([]byte, error) {
	if strings.TrimSpace(r.InitialData) != "" {
		b, err := assets.DecodePayload(r.InitialData)
		if err != nil {
			return nil, fmt.Errorf("decode initial data: %w", err)
		}
		return b, nil
	}
	switch r.Type {
	case KindBytes:
		if r.Data == "" {
			return nil, ErrEmpty
		}
		return []byte(r.Data), nil
	case KindBytes64:
		if strings.TrimSpace(r.Data) == "" {
			return nil, ErrEmpty
		}
		b, err := assets.DecodePayload(r.Data)
		if err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
		return b, nil
	case KindS3Path:
		key := r.Key()
		if key == "" {
			return nil, ErrEmpty
		}
		if l.Fetcher == nil {
			return nil, ErrNoFetcher
		}
		b, err := l.Fetcher.Fetch(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", key, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Type)
}
