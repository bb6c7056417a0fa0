// Package config handles stage configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all stage settings.
type Config struct {
	Viewer  ViewerConfig  `yaml:"viewer"`
	Loader  LoaderConfig  `yaml:"loader"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ViewerConfig holds viewport and framing settings.
type ViewerConfig struct {
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	FoVDeg          float64       `yaml:"fov_deg"`      // Reference vertical field of view
	TargetDecay     time.Duration `yaml:"target_decay"` // Pivot easing decay time
	TightBounds     bool          `yaml:"tight_bounds"` // Vertex-exact bounds instead of per-primitive boxes
	ShadowIntensity float64       `yaml:"shadow_intensity"`
	ShadowSoftness  float64       `yaml:"shadow_softness"`
}

// LoaderConfig holds model fetching settings.
type LoaderConfig struct {
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MaxBytes    int64         `yaml:"max_bytes"` // 0 means unlimited
}

// ExportConfig holds the default export options.
type ExportConfig struct {
	Binary         bool `yaml:"binary"`
	OnlyVisible    bool `yaml:"only_visible"`
	MaxTextureSize int  `yaml:"max_texture_size"` // 0 keeps textures as they are
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"`
	ServiceName string `yaml:"service_name"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:           800,
			Height:          600,
			FoVDeg:          45,
			TargetDecay:     50 * time.Millisecond,
			TightBounds:     false,
			ShadowIntensity: 0,
			ShadowSoftness:  1,
		},
		Loader: LoaderConfig{
			HTTPTimeout: 30 * time.Second,
			MaxBytes:    256 << 20,
		},
		Export: ExportConfig{
			Binary:         true,
			OnlyVisible:    true,
			MaxTextureSize: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			ServiceName: "modelstage",
		},
	}
}

// Validate rejects settings the stage cannot work with.
func (c *Config) Validate() error {
	if c.Viewer.FoVDeg <= 0 || c.Viewer.FoVDeg >= 180 {
		return fmt.Errorf("%w: viewer.fov_deg must be in (0, 180), got %v", ErrInvalid, c.Viewer.FoVDeg)
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("%w: viewer size must be positive, got %dx%d", ErrInvalid, c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.TargetDecay < 0 {
		return fmt.Errorf("%w: viewer.target_decay must not be negative", ErrInvalid)
	}
	if c.Viewer.ShadowIntensity < 0 {
		return fmt.Errorf("%w: viewer.shadow_intensity must not be negative", ErrInvalid)
	}
	if c.Loader.MaxBytes < 0 {
		return fmt.Errorf("%w: loader.max_bytes must not be negative", ErrInvalid)
	}
	if c.Export.MaxTextureSize < 0 {
		return fmt.Errorf("%w: export.max_texture_size must not be negative", ErrInvalid)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}
