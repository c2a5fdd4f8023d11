// Package config provides configuration loading for the rendering engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Conversion backends.
const (
	BackendLibreOffice = "libreoffice"
	BackendGotenberg   = "gotenberg"
)

// Timestamp sources for certificate pages.
const (
	TimestampsClock = "clock"
	TimestampsAudit = "audit"
)

// Config is the complete engine configuration.
type Config struct {
	Assets     AssetsConfig     `yaml:"assets"`
	Render     RenderConfig     `yaml:"render"`
	Conversion ConversionConfig `yaml:"conversion"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AssetsConfig locates the font and template files.
type AssetsConfig struct {
	// HandwritingFont is a TrueType file used for typed signatures.
	HandwritingFont string `yaml:"handwriting_font"`
	// CertificateTemplate is a PDF whose first page backs each certificate page.
	CertificateTemplate string `yaml:"certificate_template"`
}

// RenderConfig controls field rendering.
type RenderConfig struct {
	// Timezone applies to documents that carry none (IANA name).
	Timezone string `yaml:"timezone"`
	// CertificateReason is printed under the timestamps.
	CertificateReason string `yaml:"certificate_reason"`
	// Timestamps is "clock" or "audit".
	Timestamps string `yaml:"timestamps"`
	// Strict fails a render on the first field error.
	Strict bool `yaml:"strict"`
}

// ConversionConfig selects the DOCX to PDF bridge.
type ConversionConfig struct {
	Backend      string        `yaml:"backend"`
	Binary       string        `yaml:"binary"`
	GotenbergURL string        `yaml:"gotenberg_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StorageConfig describes the object store holding S3_PATH documents.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Assets: AssetsConfig{
			HandwritingFont:     "assets/fonts/handwriting.ttf",
			CertificateTemplate: "assets/certificate.pdf",
		},
		Render: RenderConfig{
			Timezone:          "UTC",
			CertificateReason: "Signed electronically",
			Timestamps:        TimestampsClock,
		},
		Conversion: ConversionConfig{
			Backend: BackendLibreOffice,
			Binary:  "soffice",
			Timeout: 2 * time.Minute,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
			UseSSL: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Namespace: "esign",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Conversion.Backend {
	case BackendLibreOffice:
		if c.Conversion.Binary == "" {
			return fmt.Errorf("conversion.binary is required for %s", BackendLibreOffice)
		}
	case BackendGotenberg:
		if c.Conversion.GotenbergURL == "" {
			return fmt.Errorf("conversion.gotenberg_url is required for %s", BackendGotenberg)
		}
	default:
		return fmt.Errorf("conversion.backend must be %s or %s, got %q", BackendLibreOffice, BackendGotenberg, c.Conversion.Backend)
	}
	if c.Conversion.Timeout < 0 {
		return fmt.Errorf("conversion.timeout must not be negative")
	}
	if _, err := time.LoadLocation(c.Render.Timezone); err != nil {
		return fmt.Errorf("render.timezone: %w", err)
	}
	switch c.Render.Timestamps {
	case TimestampsClock:
	case TimestampsAudit:
		if c.Database.DSN == "" {
			return fmt.Errorf("render.timestamps=%s requires database.dsn", TimestampsAudit)
		}
	default:
		return fmt.Errorf("render.timestamps must be %s or %s, got %q", TimestampsClock, TimestampsAudit, c.Render.Timestamps)
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.endpoint is set")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// Location returns the configured default timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Render.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ReadOverlay parses a YAML file without applying defaults, for use with
// Merge. Fields the file leaves out stay zero.
func ReadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &overlay, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Assets
	if other.Assets.HandwritingFont != "" {
		c.Assets.HandwritingFont = other.Assets.HandwritingFont
	}
	if other.Assets.CertificateTemplate != "" {
		c.Assets.CertificateTemplate = other.Assets.CertificateTemplate
	}

	// Render
	if other.Render.Timezone != "" {
		c.Render.Timezone = other.Render.Timezone
	}
	if other.Render.CertificateReason != "" {
		c.Render.CertificateReason = other.Render.CertificateReason
	}
	if other.Render.Timestamps != "" {
		c.Render.Timestamps = other.Render.Timestamps
	}
	if other.Render.Strict {
		c.Render.Strict = true
	}

	// Conversion
	if other.Conversion.Backend != "" {
		c.Conversion.Backend = other.Conversion.Backend
	}
	if other.Conversion.Binary != "" {
		c.Conversion.Binary = other.Conversion.Binary
	}
	if other.Conversion.GotenbergURL != "" {
		c.Conversion.GotenbergURL = other.Conversion.GotenbergURL
	}
	if other.Conversion.Timeout != 0 {
		c.Conversion.Timeout = other.Conversion.Timeout
	}

	// Storage
	if other.Storage.Endpoint != "" {
		c.Storage.Endpoint = other.Storage.Endpoint
		c.Storage.UseSSL = other.Storage.UseSSL
	}
	if other.Storage.Bucket != "" {
		c.Storage.Bucket = other.Storage.Bucket
	}
	if other.Storage.Region != "" {
		c.Storage.Region = other.Storage.Region
	}
	if other.Storage.AccessKey != "" {
		c.Storage.AccessKey = other.Storage.AccessKey
	}
	if other.Storage.SecretKey != "" {
		c.Storage.SecretKey = other.Storage.SecretKey
	}

	if other.Database.DSN != "" {
		c.Database.DSN = other.Database.DSN
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Metrics.Namespace != "" {
		c.Metrics.Namespace = other.Metrics.Namespace
	}
}

// Environment variables that override secrets and endpoints.
const (
	EnvDatabaseDSN   = "ESIGN_DATABASE_DSN"
	EnvStorageAccess = "ESIGN_STORAGE_ACCESS_KEY"
	EnvStorageSecret = "ESIGN_STORAGE_SECRET_KEY"
	EnvGotenbergURL  = "ESIGN_GOTENBERG_URL"
	EnvLogLevel      = "ESIGN_LOG_LEVEL"
)

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Database.DSN, EnvDatabaseDSN)
	set(&c.Storage.AccessKey, EnvStorageAccess)
	set(&c.Storage.SecretKey, EnvStorageSecret)
	set(&c.Conversion.GotenbergURL, EnvGotenbergURL)
	set(&c.Log.Level, EnvLogLevel)
}
