// Package config loads the YAML configuration for the biodata service.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// Config holds all runtime settings.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Limits struct {
		MaxPhotoBytes int `yaml:"max_photo_bytes"`
		MaxBodyBytes  int `yaml:"max_body_bytes"`
	} `yaml:"limits"`

	Template struct {
		Path string `yaml:"path"`
	} `yaml:"template"`

	Layout LayoutConfig `yaml:"layout"`

	Photos struct {
		// Formats is the ordered list of decoders tried on each photo.
		Formats   []string `yaml:"formats"`
		MaxPixels int      `yaml:"max_pixels"`

		// MaxSourcePixels caps width*height declared by an uploaded photo.
		MaxSourcePixels int `yaml:"max_source_pixels"`
	} `yaml:"photos"`

	Output OutputConfig `yaml:"output"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	RateStore struct {
		RedisAddr string `yaml:"redis_addr"`
		RedisDB   int    `yaml:"redis_db"`
	} `yaml:"rate_store"`

	Auth struct {
		// APIKeys maps an X-API-Key value to its requests per interval.
		APIKeys map[string]int `yaml:"api_keys"`
		// ReloadInterval re-reads api_keys from the config file; 0 disables.
		ReloadInterval time.Duration `yaml:"reload_interval"`
	} `yaml:"auth"`
}

// LayoutConfig places text and photos on the template page. All values are
// PDF points; vertical offsets are measured down from the top edge.
type LayoutConfig struct {
	TextX        float64 `yaml:"text_x"`
	TopOffset    float64 `yaml:"top_offset"`
	LineGap      float64 `yaml:"line_gap"`
	FontSize     float64 `yaml:"font_size"`
	FontFamily   string  `yaml:"font_family"`
	// FontFile is an optional TrueType font embedded as FontFamily so
	// names outside cp1252 render.
	FontFile     string  `yaml:"font_file"`
	Placeholder  string  `yaml:"placeholder"`
	PhotoSize    float64 `yaml:"photo_size"`
	ProfileRight float64 `yaml:"profile_right"`
	ProfileTop   float64 `yaml:"profile_top"`
}

// OutputConfig controls where composed documents are written.
type OutputConfig struct {
	MountCandidates []string `yaml:"mount_candidates"`
	Subfolder       string   `yaml:"subfolder"`
	FallbackDir     string   `yaml:"fallback_dir"`
}

// DefaultLayout returns the layout of the stock biodata template.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		TextX:        70,
		TopOffset:    120,
		LineGap:      20,
		FontSize:     12,
		FontFamily:   "Helvetica",
		Placeholder:  "-",
		PhotoSize:    100,
		ProfileRight: 150,
		ProfileTop:   200,
	}
}

// Default returns a configuration usable without any config file.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":8085"
	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 28
	cfg.Limits.MaxPhotoBytes = 10 << 20
	cfg.Limits.MaxBodyBytes = 25 << 20
	cfg.Template.Path = "template.pdf"
	cfg.Layout = DefaultLayout()
	cfg.Photos.Formats = []string{"jpeg", "png"}
	cfg.Photos.MaxPixels = 1200
	cfg.Photos.MaxSourcePixels = 40_000_000
	cfg.Output = OutputConfig{
		MountCandidates: []string{"E:/", "F:/", "G:/"},
		Subfolder:       "Biodata_PDFs",
		FallbackDir:     "local_backups",
	}
	cfg.RateLimiter.Interval = time.Minute
	cfg.RateLimiter.UserLimit = 30
	return cfg
}

// Load reads the file named by CONFIG_PATH, or config.yaml. A missing
// config.yaml is not an error; the defaults are used instead.
func Load() Config {
	path := Path()
	if path == "" {
		return finish(Default())
	}
	return LoadFrom(path)
}

// Path returns the config file Load would read, or "" when there is none.
func Path() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return defaultConfigPath
}

// APIKeySource re-reads auth.api_keys from a config file.
type APIKeySource struct {
	Path string
}

// LoadTokens parses the file and returns its validated key set.
func (s APIKeySource) LoadTokens(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var partial struct {
		Auth struct {
			APIKeys map[string]int `yaml:"api_keys"`
		} `yaml:"auth"`
	}
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	for key, limit := range partial.Auth.APIKeys {
		if key == "" || limit < 0 {
			return nil, fmt.Errorf("auth.api_keys: invalid entry %q=%d", key, limit)
		}
	}
	return partial.Auth.APIKeys, nil
}

// LoadFrom reads and validates the config at path. It panics on unreadable
// or invalid configuration since the service cannot start without it.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	return finish(cfg)
}

func finish(cfg Config) Config {
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		panic("config: " + err.Error())
	}
	cfg.Template.Path = appRelative(cfg.Template.Path)
	cfg.Output.FallbackDir = appRelative(cfg.Output.FallbackDir)
	cfg.Layout.FontFile = appRelative(cfg.Layout.FontFile)
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BIODATA_TEMPLATE"); v != "" {
		cfg.Template.Path = v
	}
	if v := os.Getenv("BIODATA_FALLBACK_DIR"); v != "" {
		cfg.Output.FallbackDir = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Template.Path == "":
		return errors.New("template.path is empty")
	case c.Output.FallbackDir == "":
		return errors.New("output.fallback_dir is empty")
	case c.Output.Subfolder == "" || c.Output.Subfolder != filepath.Base(c.Output.Subfolder):
		return fmt.Errorf("output.subfolder %q must be a single path element", c.Output.Subfolder)
	case len(c.Photos.Formats) == 0:
		return errors.New("photos.formats is empty")
	case c.Photos.MaxPixels < 0:
		return errors.New("photos.max_pixels must not be negative")
	case c.Photos.MaxSourcePixels < 0:
		return errors.New("photos.max_source_pixels must not be negative")
	case c.Layout.FontFamily == "":
		return errors.New("layout.font_family is empty")
	case c.Layout.FontSize <= 0:
		return errors.New("layout.font_size must be positive")
	case c.Layout.LineGap <= 0:
		return errors.New("layout.line_gap must be positive")
	case c.Layout.PhotoSize <= 0:
		return errors.New("layout.photo_size must be positive")
	case c.Limits.MaxPhotoBytes <= 0:
		return errors.New("limits.max_photo_bytes must be positive")
	case c.RateLimiter.Interval <= 0:
		return errors.New("rate_limiter.interval must be positive")
	case c.RateLimiter.UserLimit < 0:
		return errors.New("rate_limiter.user_limit must not be negative")
	case c.Auth.ReloadInterval < 0:
		return errors.New("auth.reload_interval must not be negative")
	}
	for key, limit := range c.Auth.APIKeys {
		if key == "" || limit < 0 {
			return fmt.Errorf("auth.api_keys: invalid entry %q=%d", key, limit)
		}
	}
	return nil
}

// appRelative resolves relative paths against the executable's directory,
// so the template and fallback folder travel with the application.
func appRelative(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return p
	}
	return filepath.Join(filepath.Dir(exe), p)
}
