package source

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
)

type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	b, ok := f[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return b, nil
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want Format
	}{
		{"file type pdf", Record{FileType: "PDF"}, FormatPDF},
		{"mime pdf", Record{MimeType: "application/pdf"}, FormatPDF},
		{"word mime", Record{MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Data: "x.pdf"}, FormatDOCX},
		{"key suffix", Record{Type: KindS3Path, Data: "uploads/Contract.PDF"}, FormatPDF},
		{"json key suffix", Record{Type: KindS3Path, Data: `{"key":"a/b.pdf"}`}, FormatPDF},
		{"default", Record{Data: "something"}, FormatDOCX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.rec); got != tt.want {
				t.Fatalf("DetectFormat = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	l := Loader{Fetcher: fakeFetcher{"docs/a.pdf": []byte("%PDF-remote")}}
	b64 := base64.StdEncoding.EncodeToString([]byte("%PDF-initial"))
	urlB64 := base64.RawURLEncoding.EncodeToString([]byte{0xfb, 0xff, 0xfe})

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"initial data wins", Record{Type: KindS3Path, Data: "docs/a.pdf", InitialData: b64}, "%PDF-initial"},
		{"data url initial", Record{InitialData: "data:application/pdf;base64," + b64}, "%PDF-initial"},
		{"bytes", Record{Type: KindBytes, Data: "raw"}, "raw"},
		{"bytes64", Record{Type: KindBytes64, Data: b64}, "%PDF-initial"},
		{"bytes64 wrapped", Record{Type: KindBytes64, Data: b64[:8] + "\r\n" + b64[8:]}, "%PDF-initial"},
		{"bytes64 url alphabet", Record{Type: KindBytes64, Data: urlB64}, "\xfb\xff\xfe"},
		{"s3", Record{Type: KindS3Path, Data: " docs/a.pdf "}, "%PDF-remote"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Load(ctx, tt.rec)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Fatalf("Load = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := (Loader{}).Load(ctx, Record{Type: KindS3Path, Data: "k"}); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("no fetcher: %v", err)
	}
	if _, err := (Loader{}).Load(ctx, Record{Type: KindBytes64}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := (Loader{}).Load(ctx, Record{Type: "FTP", Data: "x"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unknown: %v", err)
	}
	if _, err := (Loader{}).Load(ctx, Record{InitialData: "!!!"}); err == nil {
		t.Fatal("expected base64 error")
	}
	l := Loader{Fetcher: fakeFetcher{}}
	if _, err := l.Load(ctx, Record{Type: KindS3Path, Data: "missing"}); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestNewMinIORequiresBucket(t *testing.T) {
	if _, err := NewMinIO(MinIOConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
	m, err := NewMinIO(MinIOConfig{Endpoint: "localhost:9000", Bucket: "documents", Region: "us-east-1"})
	if err != nil || m == nil {
		t.Fatalf("NewMinIO = %v, %v", m, err)
	}
}
