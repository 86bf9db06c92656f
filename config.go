package formula

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the engine options
type Config struct {
	MaxDepth  int    `yaml:"max_depth"`
	CacheSize int    `yaml:"cache_size"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns the settings New uses without options
func DefaultConfig() Config {
	return Config{
		MaxDepth:  DefaultMaxDepth,
		CacheSize: DefaultCacheSize,
		LogLevel:  zerolog.LevelInfoValue,
	}
}

// LoadConfig reads a YAML config file. keys missing from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes a YAML config
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.MaxDepth < 0 || cfg.CacheSize < 0 {
		return Config{}, fmt.Errorf("decode config: max_depth and cache_size must not be negative")
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level parses the configured log level
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger builds a logger writing to w at the configured level
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := c.Level()
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Options converts the config to engine options. logger is attached as
// is; use Logger to build one from the config.
func (c Config) Options(logger zerolog.Logger) []Option {
	return []Option{
		WithLogger(logger),
		WithMaxDepth(c.MaxDepth),
		WithCacheSize(c.CacheSize),
	}
}
