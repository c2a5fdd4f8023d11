package fonts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrAssetMissing is returned when a configured asset file does not exist.
var ErrAssetMissing = errors.New("asset missing")

// Provider supplies the handwriting font used for typed signatures and the
// certificate page template.
type Provider interface {
	HandwritingFont(ctx context.Context) (*TrueType, error)
	CertificateTemplate(ctx context.Context) ([]byte, error)
}

// DirProvider reads both assets from the local file system on every call.
type DirProvider struct {
	FontPath     string
	TemplatePath string
}

func (p DirProvider) HandwritingFont(ctx context.Context) (*TrueType, error) {
	data, err := readAsset(ctx, p.FontPath)
	if err != nil {
		return nil, fmt.Errorf("read handwriting font: %w", err)
	}
	return LoadTrueType(strings.TrimSuffix(filepath.Base(p.FontPath), filepath.Ext(p.FontPath)), data)
}

func (p DirProvider) CertificateTemplate(ctx context.Context) ([]byte, error) {
	data, err := readAsset(ctx, p.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("read certificate template: %w", err)
	}
	return data, nil
}

func readAsset(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("no path configured: %w", ErrAssetMissing)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrAssetMissing)
	}
	return data, err
}

// Handwriting loads the handwriting face at most once. A Handwriting belongs
// to a single render and is not safe for concurrent use.
type Handwriting struct {
	provider Provider
	loaded   bool
	face     *TrueType
	err      error
}

// NewHandwriting wraps p. A nil provider always reports ErrAssetMissing.
func NewHandwriting(p Provider) *Handwriting { return &Handwriting{provider: p} }

// Face returns the handwriting face or the error from the first attempt.
func (h *Handwriting) Face(ctx context.Context) (*TrueType, error) {
	if h.loaded {
		return h.face, h.err
	}
	h.loaded = true
	if h.provider == nil {
		h.err = fmt.Errorf("no font provider: %w", ErrAssetMissing)
		return nil, h.err
	}
	h.face, h.err = h.provider.HandwritingFont(ctx)
	return h.face, h.err
}
