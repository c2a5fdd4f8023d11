package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arpitWebvedant/E-signature-api/certificate"
	"github.com/arpitWebvedant/E-signature-api/config"
	"github.com/arpitWebvedant/E-signature-api/convert"
	"github.com/arpitWebvedant/E-signature-api/fonts"
	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/render"
)

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	for i, path := range g.configPaths {
		if i == 0 {
			fileCfg, err := config.LoadFromFile(path)
			if err != nil {
				return nil, err
			}
			cfg = fileCfg
			continue
		}
		overlay, err := config.ReadOverlay(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(overlay)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// deps holds the collaborators shared by the commands.
type deps struct {
	cfg     *config.Config
	logger  observability.Logger
	metrics observability.Metrics
}

func newDeps(g *globalFlags) (*deps, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewProductionLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	metrics, err := observability.NewMetrics(cfg.Metrics.Namespace, prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return &deps{cfg: cfg, logger: logger, metrics: metrics}, nil
}

func (d *deps) converter() convert.Converter {
	c := d.cfg.Conversion
	var backend convert.Converter
	switch c.Backend {
	case config.BackendGotenberg:
		backend = convert.Gotenberg{URL: c.GotenbergURL}
	default:
		backend = convert.LibreOffice{Binary: c.Binary}
	}
	if c.Timeout > 0 {
		next := backend
		backend = convert.Func(func(ctx context.Context, docx []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, c.Timeout)
			defer cancel()
			return next.Convert(ctx, docx)
		})
	}
	return convert.Instrumented{Backend: c.Backend, Next: backend, Metrics: d.metrics, Logger: d.logger}
}

func (d *deps) engine(timestamps certificate.TimestampSource) *render.Engine {
	return render.NewEngine(render.Config{
		Assets: fonts.DirProvider{
			FontPath:     d.cfg.Assets.HandwritingFont,
			TemplatePath: d.cfg.Assets.CertificateTemplate,
		},
		Converter:  d.converter(),
		Timestamps: timestamps,
		Reason:     d.cfg.Render.CertificateReason,
		Location:   d.cfg.Location(),
		Strict:     d.cfg.Render.Strict,
		Logger:     d.logger,
		Metrics:    d.metrics,
	})
}
