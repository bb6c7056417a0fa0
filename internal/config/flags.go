package config

import "flag"

// Flags are the command-line overrides shared by every stagetool command.
type Flags struct {
	config      *string
	debug       *bool
	width       *int
	height      *int
	fov         *float64
	tightBounds *bool
	logFile     *string
	logFormat   *string
	metricsAddr *string
	tracing     *bool
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:      fs.String("config", "", "Path to config file"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		width:       fs.Int("width", 0, "Viewport width"),
		height:      fs.Int("height", 0, "Viewport height"),
		fov:         fs.Float64("fov", 0, "Reference vertical field of view in degrees"),
		tightBounds: fs.Bool("tight-bounds", false, "Use vertex-exact bounds"),
		logFile:     fs.String("log-file", "", "Write logs to this file as well"),
		logFormat:   fs.String("log-format", "", "Log format: console or json"),
		metricsAddr: fs.String("metrics-addr", "", "Serve Prometheus metrics on this address"),
		tracing:     fs.Bool("trace", false, "Print trace spans to stdout"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.width > 0 {
		cfg.Viewer.Width = *f.width
	}
	if *f.height > 0 {
		cfg.Viewer.Height = *f.height
	}
	if *f.fov > 0 {
		cfg.Viewer.FoVDeg = *f.fov
	}
	if *f.tightBounds {
		cfg.Viewer.TightBounds = true
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.logFormat != "" {
		cfg.Logging.Format = *f.logFormat
	}
	if *f.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = *f.metricsAddr
	}
	if *f.tracing {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = "stdout"
	}
}
