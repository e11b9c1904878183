package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/engine"
	"github.com/starford/raido/internal/sequence"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Store    StoreConfig       `yaml:"store"`
	Import   ImportConfig      `yaml:"import"`
	Engine   EngineConfig      `yaml:"engine"`
	Coverage CoverageConfig    `yaml:"coverage"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return c.Coverage.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds the SQLite point archive configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ImportConfig holds the batch-file drop directory configuration. An empty
// Dir disables the importer.
type ImportConfig struct {
	Dir string `yaml:"dir"`
}

// EngineConfig tunes the sequencing engine.
type EngineConfig struct {
	DebounceMs      int             `yaml:"debounce_ms"`
	SpreadRatio     float64         `yaml:"spread_ratio"`
	WalkSizeCeiling int             `yaml:"walk_size_ceiling"`
	HopThresholds   map[int]float64 `yaml:"hop_thresholds"`
	QueryCacheSize  int             `yaml:"query_cache_size"`
	BlobBudgetBytes int64           `yaml:"blob_budget_bytes"`
}

// Validate validates the engine configuration. Zero values mean "use the
// built-in default", so only explicitly set fields are range-checked.
func (c *EngineConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DebounceMs, validation.Min(0)),
		validation.Field(&c.WalkSizeCeiling, validation.Min(0)),
		validation.Field(&c.QueryCacheSize, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.SpreadRatio < 0 || c.SpreadRatio >= 1 {
		return fmt.Errorf("engine: spread_ratio %v outside [0, 1)", c.SpreadRatio)
	}
	for zoom, meters := range c.HopThresholds {
		if zoom < 0 || meters <= 0 {
			return fmt.Errorf("engine: bad hop threshold %d: %v", zoom, meters)
		}
	}
	return nil
}

// Options builds engine options from the configuration, falling back to the
// built-in defaults for unset fields.
func (c *EngineConfig) Options() engine.Options {
	opts := engine.DefaultOptions()
	if c.DebounceMs > 0 {
		opts.DebounceMs = c.DebounceMs
	}
	if c.SpreadRatio > 0 {
		opts.Order.SpreadRatio = c.SpreadRatio
	}
	if c.WalkSizeCeiling > 0 {
		opts.Order.WalkSizeCeiling = c.WalkSizeCeiling
	}
	if len(c.HopThresholds) > 0 {
		opts.HopThresholds = sequence.HopThresholds(c.HopThresholds)
	}
	return opts
}

// CoverageConfig controls the background full-archive prefetch.
type CoverageConfig struct {
	Enabled  bool `yaml:"enabled"`
	PageSize int  `yaml:"page_size"`
}

// Validate validates the coverage configuration.
func (c *CoverageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PageSize, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path: "./raido.db",
		},
		Import: ImportConfig{
			Dir: "",
		},
		Coverage: CoverageConfig{
			Enabled:  true,
			PageSize: 500,
		},
	}
}
