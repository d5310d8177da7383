// Package config loads pdflow settings from defaults, a TOML file and the
// environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goliatone/go-pdflow/export"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PDFLOW_"

// Config holds pdflow settings.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Browser BrowserConfig `toml:"browser"`
	Export  ExportConfig  `toml:"export"`
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

// BrowserConfig holds headless Chromium settings.
type BrowserConfig struct {
	Path                string   `toml:"path"`
	Headless            bool     `toml:"headless"`
	Args                []string `toml:"args"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
	BaseURL             string   `toml:"base_url"`
	BlockExternalAssets bool     `toml:"block_external_assets"`
}

// ExportConfig holds page format and capture settings.
type ExportConfig struct {
	PaperSize       string  `toml:"paper_size"`
	Orientation     string  `toml:"orientation"`
	MarginMM        float64 `toml:"margin_mm"`
	PixelsPerInch   float64 `toml:"pixels_per_inch"`
	Scale           float64 `toml:"scale"`
	JPEGQuality     int     `toml:"jpeg_quality"`
	SliceStrategy   string  `toml:"slice_strategy"`
	Background      string  `toml:"background"`
	FileNamePattern string  `toml:"file_name_pattern"`
	MaxUploadBytes  int64   `toml:"max_upload_bytes"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// StorageConfig holds artifact and history locations.
type StorageConfig struct {
	ArtifactDir    string `toml:"artifact_dir"`
	DatabasePath   string `toml:"database_path"`
	RetentionHours int    `toml:"retention_hours"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Browser: BrowserConfig{
			Headless:       true,
			TimeoutSeconds: 30,
		},
		Export: ExportConfig{
			PaperSize:      string(export.PaperA4),
			Orientation:    string(export.OrientationPortrait),
			PixelsPerInch:  export.DefaultPixelsPerInch,
			Scale:          export.DefaultCaptureScale,
			JPEGQuality:    export.DefaultJPEGQuality,
			SliceStrategy:  string(export.SliceCrop),
			Background:     export.DefaultBackground,
			MaxUploadBytes: 10 << 20,
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			ArtifactDir:    "./artifacts",
			DatabasePath:   "./pdflow.db",
			RetentionHours: 24 * 7,
		},
	}
}

// Load reads defaults, then the TOML file at path when it is not empty, then
// the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, export.NewError(export.KindValidation, fmt.Sprintf("read config %s", path), err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			return Config{}, export.NewError(export.KindValidation, fmt.Sprintf("unknown config keys: %s", strings.Join(keys, ", ")), nil)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from PDFLOW_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(name string) (string, bool) {
		value, ok := lookup(EnvPrefix + name)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := env("HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := env("PORT"); ok {
		c.Server.Port = v
	}

	if v, ok := env("CHROME_PATH"); ok {
		c.Browser.Path = v
	}
	if v, ok := env("HEADLESS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return envError("HEADLESS", v, err)
		}
		c.Browser.Headless = parsed
	}
	if v, ok := env("CHROME_ARGS"); ok {
		c.Browser.Args = SplitCSV(v)
	}
	if v, ok := env("BROWSER_TIMEOUT"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return envError("BROWSER_TIMEOUT", v, err)
		}
		c.Browser.TimeoutSeconds = parsed
	}
	if v, ok := env("BASE_URL"); ok {
		c.Browser.BaseURL = v
	}
	if v, ok := env("BLOCK_EXTERNAL_ASSETS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return envError("BLOCK_EXTERNAL_ASSETS", v, err)
		}
		c.Browser.BlockExternalAssets = parsed
	}

	if v, ok := env("PAPER_SIZE"); ok {
		c.Export.PaperSize = v
	}
	if v, ok := env("ORIENTATION"); ok {
		c.Export.Orientation = v
	}
	if v, ok := env("MARGIN_MM"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("MARGIN_MM", v, err)
		}
		c.Export.MarginMM = parsed
	}
	if v, ok := env("SCALE"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("SCALE", v, err)
		}
		c.Export.Scale = parsed
	}
	if v, ok := env("JPEG_QUALITY"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return envError("JPEG_QUALITY", v, err)
		}
		c.Export.JPEGQuality = parsed
	}
	if v, ok := env("SLICE_STRATEGY"); ok {
		c.Export.SliceStrategy = v
	}
	if v, ok := env("FILE_NAME_PATTERN"); ok {
		c.Export.FileNamePattern = v
	}
	if v, ok := env("EXPORT_TIMEOUT"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return envError("EXPORT_TIMEOUT", v, err)
		}
		c.Export.TimeoutSeconds = parsed
	}

	if v, ok := env("ARTIFACT_DIR"); ok {
		c.Storage.ArtifactDir = v
	}
	if v, ok := env("DATABASE_PATH"); ok {
		c.Storage.DatabasePath = v
	}
	if v, ok := env("RETENTION_HOURS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return envError("RETENTION_HOURS", v, err)
		}
		c.Storage.RetentionHours = parsed
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside an export.
func (c Config) Validate() error {
	if err := export.ValidateFormat(c.PageFormat()); err != nil {
		return err
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return export.NewError(export.KindValidation, fmt.Sprintf("jpeg_quality must be between 1 and 100, got %d", c.Export.JPEGQuality), nil)
	}
	if c.Export.Scale <= 0 {
		return export.NewError(export.KindValidation, "scale must be positive", nil)
	}
	switch export.SliceStrategy(c.Export.SliceStrategy) {
	case export.SliceCrop, export.SliceReplace:
	default:
		return export.NewError(export.KindValidation, fmt.Sprintf("unknown slice_strategy %q", c.Export.SliceStrategy), nil)
	}
	if _, err := export.ParseHexColor(c.Export.Background); err != nil {
		return err
	}
	if c.Browser.TimeoutSeconds < 0 || c.Export.TimeoutSeconds < 0 || c.Storage.RetentionHours < 0 {
		return export.NewError(export.KindValidation, "timeouts and retention must not be negative", nil)
	}
	return nil
}

// PageFormat returns the configured default page format.
func (c Config) PageFormat() export.PageFormatConfig {
	return export.NormalizeFormat(export.PageFormatConfig{
		PaperSize:   export.PaperSize(c.Export.PaperSize),
		Orientation: export.Orientation(c.Export.Orientation),
		MarginMM:    c.Export.MarginMM,
	})
}

// BrowserTimeout returns the per-call browser timeout.
func (c Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

// ExportTimeout returns the bound on a single export.
func (c Config) ExportTimeout() time.Duration {
	return time.Duration(c.Export.TimeoutSeconds) * time.Second
}

// Retention returns how long artifacts are kept.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionHours) * time.Hour
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envError(name, value string, err error) error {
	return export.NewError(export.KindValidation, fmt.Sprintf("invalid %s%s value %q", EnvPrefix, name, value), err)
}
