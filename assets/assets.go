// Package assets decodes signature images once per render.
package assets

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Format of a decoded image.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Ext is the conventional file extension.
func (f Format) Ext() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

// ContentType is the MIME type.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Image is an embedded signature image.
type Image struct {
	// Key identifies the payload; equal payloads share a key.
	Key    string
	Format Format
	// Data is the encoded image as supplied.
	Data   []byte
	Bounds image.Rectangle
	img    image.Image
}

// Decoded returns the decoded raster.
func (i *Image) Decoded() image.Image { return i.img }

func (i *Image) Width() int  { return i.Bounds.Dx() }
func (i *Image) Height() int { return i.Bounds.Dy() }

// Aspect is width over height.
func (i *Image) Aspect() float64 {
	if i.Height() == 0 {
		return 1
	}
	return float64(i.Width()) / float64(i.Height())
}

// ErrEmbed marks image payloads that could not be embedded.
var ErrEmbed = errors.New("signature image could not be embedded")

// EmbedError describes why a payload was rejected.
type EmbedError struct {
	Key    string
	Reason string
	Err    error
}

func (e *EmbedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embed image %s: %s: %v", short(e.Key), e.Reason, e.Err)
	}
	return fmt.Sprintf("embed image %s: %s", short(e.Key), e.Reason)
}

func (e *EmbedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEmbed}
	}
	return []error{ErrEmbed, e.Err}
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// Result is the outcome of one embed request.
type Result struct {
	Image *Image
	Err   error
}

// OK reports whether the image can be drawn.
func (r Result) OK() bool { return r.Err == nil && r.Image != nil }

// Decoder decodes raw bytes in one format. It exists so tests can observe
// decode calls.
type Decoder func(data []byte, format Format) (image.Image, error)

// DefaultDecoder uses the standard PNG and JPEG decoders.
func DefaultDecoder(data []byte, format Format) (image.Image, error) {
	if format == FormatPNG {
		return png.Decode(bytes.NewReader(data))
	}
	return jpeg.Decode(bytes.NewReader(data))
}

// Cache memoises decoded images by payload for the lifetime of one render.
// It is not safe for concurrent use.
type Cache struct {
	limits  Limits
	decode  Decoder
	entries map[string]Result
	decodes int
}

// Option configures a Cache.
type Option func(*Cache)

// WithDecoder replaces the image decoder.
func WithDecoder(d Decoder) Option { return func(c *Cache) { c.decode = d } }

// WithLimits replaces the image bounds limits.
func WithLimits(l Limits) Option { return func(c *Cache) { c.limits = l } }

// NewCache returns an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		limits:  DefaultLimits(),
		decode:  DefaultDecoder,
		entries: make(map[string]Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decodes is the number of payloads actually decoded.
func (c *Cache) Decodes() int { return c.decodes }

// Len is the number of distinct payloads seen.
func (c *Cache) Len() int { return len(c.entries) }

// Embed decodes payload, a base64 string or data URL, unless an identical
// payload was already embedded. Failures are cached too.
func (c *Cache) Embed(payload string) Result {
	key := Key(payload)
	if r, ok := c.entries[key]; ok {
		return r
	}
	c.decodes++
	r := c.load(key, payload)
	c.entries[key] = r
	return r
}

// Key derives the memo key of a payload.
func Key(payload string) string {
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) load(key, payload string) Result {
	data, err := DecodePayload(payload)
	if err != nil {
		return Result{Err: &EmbedError{Key: key, Reason: "invalid base64", Err: err}}
	}
	if len(data) == 0 {
		return Result{Err: &EmbedError{Key: key, Reason: "empty payload"}}
	}
	if int64(len(data)) > c.limits.MaxEncodedBytes {
		return Result{Err: &EmbedError{Key: key, Reason: fmt.Sprintf("payload exceeds %d bytes", c.limits.MaxEncodedBytes)}}
	}

	var errs []error
	for _, format := range candidates(data) {
		if err := c.limits.check(data, format); err != nil {
			errs = append(errs, err)
			continue
		}
		img, err := c.decode(data, format)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", format, err))
			continue
		}
		return Result{Image: &Image{Key: key, Format: format, Data: data, Bounds: img.Bounds(), img: img}}
	}
	return Result{Err: &EmbedError{Key: key, Reason: "not a PNG or JPEG image", Err: errors.Join(errs...)}}
}

// DecodePayload strips an optional data URL prefix and decodes base64 in
// standard or URL alphabet, padded or not.
func DecodePayload(payload string) ([]byte, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return nil, err
}

// candidates orders the formats to try, the sniffed one first.
func candidates(data []byte) []Format {
	if SniffFormat(data) == FormatPNG {
		return []Format{FormatPNG, FormatJPEG}
	}
	return []Format{FormatJPEG, FormatPNG}
}

// SniffFormat reports the format by magic bytes, defaulting to JPEG.
func SniffFormat(data []byte) Format {
	if len(data) >= 3 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4e {
		return FormatPNG
	}
	return FormatJPEG
}
