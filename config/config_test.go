package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Conversion.Backend != BackendLibreOffice {
		t.Errorf("expected default backend %s, got %s", BackendLibreOffice, cfg.Conversion.Backend)
	}
	if cfg.Render.Timestamps != TimestampsClock {
		t.Errorf("expected clock timestamps, got %s", cfg.Render.Timestamps)
	}
	if cfg.Metrics.Namespace != "esign" {
		t.Errorf("expected namespace esign, got %s", cfg.Metrics.Namespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Conversion.Backend = "pandoc" }, true},
		{"libreoffice without binary", func(c *Config) { c.Conversion.Binary = "" }, true},
		{"gotenberg without url", func(c *Config) { c.Conversion.Backend = BackendGotenberg }, true},
		{"gotenberg with url", func(c *Config) {
			c.Conversion.Backend = BackendGotenberg
			c.Conversion.GotenbergURL = "http://gotenberg:3000"
		}, false},
		{"negative timeout", func(c *Config) { c.Conversion.Timeout = -time.Second }, true},
		{"bad timezone", func(c *Config) { c.Render.Timezone = "Mars/Olympus" }, true},
		{"audit without database", func(c *Config) { c.Render.Timestamps = TimestampsAudit }, true},
		{"audit with database", func(c *Config) {
			c.Render.Timestamps = TimestampsAudit
			c.Database.DSN = "postgres://localhost/esign"
		}, false},
		{"endpoint without bucket", func(c *Config) { c.Storage.Endpoint = "minio:9000" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esign.yaml")
	content := `
conversion:
  backend: gotenberg
  gotenberg_url: http://gotenberg:3000
  timeout: 45s
render:
  timezone: Europe/Berlin
storage:
  endpoint: minio:9000
  bucket: documents
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Conversion.Backend != BackendGotenberg {
		t.Errorf("expected backend gotenberg, got %s", cfg.Conversion.Backend)
	}
	if cfg.Conversion.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Conversion.Timeout)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", cfg.Location())
	}
	// Defaults survive for keys the file leaves out.
	if cfg.Render.CertificateReason != "Signed electronically" {
		t.Errorf("expected default reason, got %q", cfg.Render.CertificateReason)
	}
	if cfg.Storage.Region != "us-east-1" {
		t.Errorf("expected default region, got %s", cfg.Storage.Region)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("conversion: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "esign.yaml")
	cfg := DefaultConfig()
	cfg.Render.Strict = true
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if !loaded.Render.Strict {
		t.Error("expected strict to round-trip")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Conversion: ConversionConfig{Backend: BackendGotenberg, GotenbergURL: "http://g:3000"},
		Storage:    StorageConfig{Endpoint: "minio:9000", Bucket: "docs"},
		Log:        LogConfig{Level: "debug"},
	})

	if base.Conversion.Backend != BackendGotenberg {
		t.Errorf("expected merged backend, got %s", base.Conversion.Backend)
	}
	if base.Conversion.Binary != "soffice" {
		t.Errorf("expected binary preserved, got %s", base.Conversion.Binary)
	}
	if base.Storage.UseSSL {
		t.Error("expected use_ssl taken from the config that set the endpoint")
	}
	if base.Log.Level != "debug" {
		t.Errorf("expected debug, got %s", base.Log.Level)
	}

	base.Merge(nil)
	if base.Storage.Bucket != "docs" {
		t.Error("merging nil changed the config")
	}
}

func TestReadOverlayMergesOverBase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	if err := DefaultConfig().SaveToFile(base); err != nil {
		t.Fatal(err)
	}
	site := filepath.Join(dir, "site.yaml")
	if err := os.WriteFile(site, []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(base)
	if err != nil {
		t.Fatal(err)
	}
	overlay, err := ReadOverlay(site)
	if err != nil {
		t.Fatal(err)
	}
	if overlay.Conversion.Binary != "" {
		t.Errorf("overlay should not carry defaults, got binary %q", overlay.Conversion.Binary)
	}
	cfg.Merge(overlay)
	if cfg.Log.Level != "warn" {
		t.Errorf("expected overlay level, got %s", cfg.Log.Level)
	}
	if cfg.Conversion.Binary != "soffice" {
		t.Errorf("expected base binary kept, got %s", cfg.Conversion.Binary)
	}

	if _, err := ReadOverlay(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing overlay")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDatabaseDSN:   "postgres://db/esign",
		EnvStorageSecret: "s3cret",
		EnvLogLevel:      "",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if cfg.Database.DSN != "postgres://db/esign" {
		t.Errorf("expected DSN from env, got %q", cfg.Database.DSN)
	}
	if cfg.Storage.SecretKey != "s3cret" {
		t.Errorf("expected secret from env, got %q", cfg.Storage.SecretKey)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("empty env value should not override, got %q", cfg.Log.Level)
	}
}
