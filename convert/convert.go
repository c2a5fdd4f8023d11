// Package convert turns flow documents (DOCX) into PDF through an external
// office engine.
package convert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arpitWebvedant/E-signature-api/observability"
)

// ErrConversion wraps every failure of a conversion backend.
var ErrConversion = errors.New("document conversion failed")

// Converter converts DOCX bytes to PDF bytes.
type Converter interface {
	Convert(ctx context.Context, docx []byte) ([]byte, error)
}

// Func adapts a function to Converter.
type Func func(ctx context.Context, docx []byte) ([]byte, error)

func (f Func) Convert(ctx context.Context, docx []byte) ([]byte, error) { return f(ctx, docx) }

// Instrumented records duration and failures of a backend.
type Instrumented struct {
	Backend string
	Next    Converter
	Metrics observability.Metrics
	Logger  observability.Logger
}

func (c Instrumented) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	metrics := c.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	log := c.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	start := time.Now()
	out, err := c.Next.Convert(ctx, docx)
	d := time.Since(start)
	metrics.ObserveConversion(c.Backend, d, err)
	if err != nil {
		log.Error("conversion failed",
			observability.String("backend", c.Backend),
			observability.Duration("duration", d),
			observability.Error("error", err),
		)
		if !errors.Is(err, ErrConversion) {
			err = fmt.Errorf("%w: %s: %v", ErrConversion, c.Backend, err)
		}
		return nil, err
	}
	log.Debug("conversion finished",
		observability.String("backend", c.Backend),
		observability.Duration("duration", d),
		observability.Int("bytes", len(out)),
	)
	return out, nil
}

// checkPDF rejects output that does not start like a PDF file.
func checkPDF(out []byte) error {
	if len(out) < 5 || string(out[:5]) != "%PDF-" {
		return fmt.Errorf("%w: output is not a PDF", ErrConversion)
	}
	return nil
}
