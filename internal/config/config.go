// Package config loads ordmap settings from a YAML file, the environment
// and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/ordmap/internal/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidOperations  = errors.New("stress operations must be positive")
	ErrInvalidKeySpace    = errors.New("stress key space must be positive")
	ErrInvalidInsertRatio = errors.New("stress insert ratio must be within [0, 1]")
	ErrInvalidCheckEvery  = errors.New("stress check interval must not be negative")
	ErrInvalidSampleEvery = errors.New("stress sample interval must be positive")
	ErrInvalidMemoryLimit = errors.New("invalid stress memory limit")
	ErrInvalidColorMode   = errors.New("render color must be auto, always or never")
	ErrInvalidFormat      = errors.New("render format must be table, plain or sketch")
)

// EnvPrefix prefixes every environment override, e.g. ORDMAP_STRESS_SEED.
const EnvPrefix = "ORDMAP"

// Default configuration values.
const (
	DefaultLogLevel         = "info"
	DefaultStressOperations = 100_000
	DefaultStressKeySpace   = 10_000
	DefaultStressInsert     = 0.6
	DefaultStressCheckEvery = 1_000
	DefaultStressSample     = 500
	DefaultMemoryLimit      = "256MiB"
	DefaultColorMode        = ColorAuto
	DefaultFormat           = FormatTable
)

// Render color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Render formats.
const (
	FormatTable  = "table"
	FormatPlain  = "plain"
	FormatSketch = "sketch"
)

// Config holds all ordmap configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Stress    StressConfig    `mapstructure:"stress"`
	Render    RenderConfig    `mapstructure:"render"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// StressConfig drives the randomized workload of the stress command.
type StressConfig struct {
	// MemoryLimit caps the node arena, in humanize format ("64MiB", "1GB").
	MemoryLimit string  `mapstructure:"memory_limit"`
	InsertRatio float64 `mapstructure:"insert_ratio"`
	Seed        int64   `mapstructure:"seed"`
	Operations  int     `mapstructure:"operations"`
	KeySpace    int     `mapstructure:"key_space"`
	// CheckEvery runs a full invariant check every N operations; 0 only
	// checks at the end.
	CheckEvery  int `mapstructure:"check_every"`
	SampleEvery int `mapstructure:"sample_every"`
}

// RenderConfig controls how trees are printed.
type RenderConfig struct {
	Color  string `mapstructure:"color"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from configPath, or from ordmap.yaml in the
// working directory or /etc/ordmap when configPath is empty. A missing
// default file is not an error.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("ordmap")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("/etc/ordmap")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)

	viperCfg.SetDefault("stress.seed", 1)
	viperCfg.SetDefault("stress.operations", DefaultStressOperations)
	viperCfg.SetDefault("stress.key_space", DefaultStressKeySpace)
	viperCfg.SetDefault("stress.insert_ratio", DefaultStressInsert)
	viperCfg.SetDefault("stress.check_every", DefaultStressCheckEvery)
	viperCfg.SetDefault("stress.sample_every", DefaultStressSample)
	viperCfg.SetDefault("stress.memory_limit", DefaultMemoryLimit)

	viperCfg.SetDefault("render.color", DefaultColorMode)
	viperCfg.SetDefault("render.format", DefaultFormat)
}

// Validate checks every section and returns all problems joined together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level))
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio))
	}

	errs = append(errs, c.Stress.validate()...)

	switch c.Render.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidColorMode, c.Render.Color))
	}

	switch c.Render.Format {
	case FormatTable, FormatPlain, FormatSketch:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.Render.Format))
	}

	return errors.Join(errs...)
}

func (s *StressConfig) validate() []error {
	var errs []error

	if s.Operations <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidOperations, s.Operations))
	}

	if s.KeySpace <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidKeySpace, s.KeySpace))
	}

	if s.InsertRatio < 0 || s.InsertRatio > 1 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidInsertRatio, s.InsertRatio))
	}

	if s.CheckEvery < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCheckEvery, s.CheckEvery))
	}

	if s.SampleEvery <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidSampleEvery, s.SampleEvery))
	}

	if _, err := s.MemoryLimitBytes(); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// MemoryLimitBytes parses MemoryLimit.
func (s *StressConfig) MemoryLimitBytes() (uint64, error) {
	limit, err := humanize.ParseBytes(s.MemoryLimit)
	if err != nil || limit == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMemoryLimit, s.MemoryLimit)
	}

	return limit, nil
}

// Observability converts the logging and telemetry sections into the
// observability configuration for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version
	obsCfg.Mode = mode
	obsCfg.Environment = c.Telemetry.Environment
	obsCfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = c.Telemetry.SampleRatio
	obsCfg.LogJSON = c.Logging.JSON

	if level, err := observability.ParseLevel(c.Logging.Level); err == nil {
		obsCfg.LogLevel = level
	}

	return obsCfg
}
