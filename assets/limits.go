package assets

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
)

// Limits bounds the signature images accepted for embedding.
type Limits struct {
	// Maximum encoded payload size. Default: 10 MB.
	MaxEncodedBytes int64
	// Maximum width or height in pixels. Default: 32768.
	MaxDimension int
	// Maximum pixel count. Default: 64 MP.
	MaxPixels int64
}

func DefaultLimits() Limits {
	return Limits{
		MaxEncodedBytes: 10 * 1024 * 1024,
		MaxDimension:    32768,
		MaxPixels:       64 * 1024 * 1024,
	}
}

// check reads the image header and rejects oversized rasters before the
// pixels are decoded.
func (l Limits) check(data []byte, format Format) error {
	decodeConfig := jpeg.DecodeConfig
	if format == FormatPNG {
		decodeConfig = png.DecodeConfig
	}
	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s header: %w", format, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%s: invalid dimensions %dx%d", format, cfg.Width, cfg.Height)
	}
	if cfg.Width > l.MaxDimension || cfg.Height > l.MaxDimension {
		return fmt.Errorf("%s: dimensions %dx%d exceed %d", format, cfg.Width, cfg.Height, l.MaxDimension)
	}
	if int64(cfg.Width)*int64(cfg.Height) > l.MaxPixels {
		return fmt.Errorf("%s: %d pixels exceed %d", format, int64(cfg.Width)*int64(cfg.Height), l.MaxPixels)
	}
	return nil
}
