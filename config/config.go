package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/asciidraw/ascii"
	"github.com/nvr-ai/asciidraw/images"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Limits     LimitsConfig     `yaml:"limits"`
	Conversion ConversionConfig `yaml:"conversion"`
	Cache      CacheConfig      `yaml:"cache"`
	Profiler   ProfilerConfig   `yaml:"profiler"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// PublicURL is the origin embedded in the curl helper script. When empty
	// the origin is derived from the request.
	PublicURL string `yaml:"public_url"`
}

// LimitsConfig holds the per-request resource limits.
type LimitsConfig struct {
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	MaxImageWidth  int           `yaml:"max_image_width"`
	MaxImageHeight int           `yaml:"max_image_height"`
	MaxGridWidth   int           `yaml:"max_grid_width"`
	ConvertTimeout time.Duration `yaml:"convert_timeout"`
}

// ConversionConfig holds the default conversion options per client kind.
type ConversionConfig struct {
	TerminalWidth int     `yaml:"terminal_width"`
	BrowserWidth  int     `yaml:"browser_width"`
	Chars         string  `yaml:"chars"`
	Contrast      float64 `yaml:"contrast"`
	Filter        string  `yaml:"filter"`
	Debug         bool    `yaml:"debug"`
}

// CacheConfig sizes the result cache; zero entries disables it.
type CacheConfig struct {
	Entries int `yaml:"entries"`
}

// ProfilerConfig controls the periodic performance report.
type ProfilerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Limits: LimitsConfig{
			MaxUploadBytes: 5 << 20,
			MaxImageWidth:  ascii.DefaultMaxDimension,
			MaxImageHeight: ascii.DefaultMaxDimension,
			MaxGridWidth:   ascii.MaxWidth,
			ConvertTimeout: 10 * time.Second,
		},
		Conversion: ConversionConfig{
			TerminalWidth: 80,
			BrowserWidth:  150,
			Chars:         ascii.DefaultChars,
			Filter:        images.BilinearFilter.String(),
		},
		Cache: CacheConfig{
			Entries: 128,
		},
		Profiler: ProfilerConfig{
			ReportInterval: time.Minute,
		},
	}
}

// Load reads the configuration file over the defaults. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}

// Validate checks that every limit is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Limits.MaxUploadBytes <= 0 {
		return errors.New("limits.max_upload_bytes must be positive")
	}
	if c.Limits.MaxImageWidth <= 0 || c.Limits.MaxImageHeight <= 0 {
		return errors.New("limits.max_image_width and limits.max_image_height must be positive")
	}
	if c.Limits.MaxGridWidth <= 0 || c.Limits.MaxGridWidth > ascii.MaxWidth {
		return errors.Errorf("limits.max_grid_width must be in [1, %d]", ascii.MaxWidth)
	}
	if c.Limits.ConvertTimeout <= 0 {
		return errors.New("limits.convert_timeout must be positive")
	}
	for name, w := range map[string]int{
		"conversion.terminal_width": c.Conversion.TerminalWidth,
		"conversion.browser_width":  c.Conversion.BrowserWidth,
	} {
		if w <= 0 || w > c.Limits.MaxGridWidth {
			return errors.Errorf("%s must be in [1, %d]", name, c.Limits.MaxGridWidth)
		}
	}
	if c.Conversion.Contrast < 0 {
		return errors.New("conversion.contrast must not be negative")
	}
	if _, err := images.ParseResampleFilter(c.Conversion.Filter); err != nil {
		return errors.Wrap(err, "conversion.filter")
	}
	return nil
}

// ResampleFilter returns the configured filter, falling back to bilinear.
func (c *Config) ResampleFilter() images.ResampleFilter {
	f, _ := images.ParseResampleFilter(c.Conversion.Filter)
	return f
}

// Options returns the conversion options for a client, before any
// per-request width override.
func (c *Config) Options(terminal bool) ascii.Options {
	width := c.Conversion.BrowserWidth
	if terminal {
		width = c.Conversion.TerminalWidth
	}
	return ascii.Options{
		Width:      width,
		Chars:      c.Conversion.Chars,
		IsTerminal: terminal,
		Contrast:   c.Conversion.Contrast,
	}
}
