package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// LibreOffice converts with a local soffice binary in headless mode. Each
// call uses its own temporary directory and user profile so concurrent
// conversions do not share state.
type LibreOffice struct {
	// Binary defaults to "soffice".
	Binary string
	// TempDir is the parent of the per-call directories; empty means the
	// system default.
	TempDir string
}

func (l LibreOffice) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	bin := l.Binary
	if bin == "" {
		bin = "soffice"
	}
	dir, err := os.MkdirTemp(l.TempDir, "esign-convert-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrConversion, err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "document.docx")
	if err := os.WriteFile(in, docx, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write input: %v", ErrConversion, err)
	}
	profile := "file://" + filepath.ToSlash(filepath.Join(dir, "profile"))

	cmd := exec.CommandContext(ctx, bin,
		"-env:UserInstallation="+profile,
		"--headless", "--norestore",
		"--convert-to", "pdf",
		"--outdir", dir,
		in,
	)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrConversion, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrConversion, bin, err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(filepath.Join(dir, "document.pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrConversion, err)
	}
	if err := checkPDF(out); err != nil {
		return nil, err
	}
	return out, nil
}
