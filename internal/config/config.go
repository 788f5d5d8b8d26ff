// Package config loads the avro command's YAML configuration.
//
// Configuration comes from a single file named by the --config flag or,
// failing that, the AVRO_CONFIG environment variable. There is no file
// discovery: with neither set, the command runs on Default().
//
// Path fields expand ${HOME} and ${VAR:-default} patterns after loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/avro/stream"
)

// EnvVar names the environment variable consulted when no --config flag
// is given.
const EnvVar = "AVRO_CONFIG"

// Config is the command configuration.
type Config struct {
	// Schema is the default schema file for commands that need one.
	Schema string `yaml:"schema"`

	// Pretty selects indented schema output.
	Pretty bool `yaml:"pretty"`

	// Log configures diagnostics on stderr.
	Log LogConfig `yaml:"log"`

	// Stream configures container reading and writing.
	Stream StreamConfig `yaml:"stream"`
}

// LogConfig configures the command's logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// StreamConfig configures AVS1 containers.
type StreamConfig struct {
	// BlockSize is the payload size at which the writer closes a block.
	// Default: 64 KiB
	BlockSize int `yaml:"block_size"`

	// VerifyCRC enables payload checksum verification when reading.
	// Default: true
	VerifyCRC bool `yaml:"verify_crc"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Stream: StreamConfig{
			BlockSize: stream.DefaultBlockSize,
			VerifyCRC: true,
		},
	}
}

// Resolve picks the configuration file: flagPath if set, otherwise
// AVRO_CONFIG. With neither it returns Default().
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path over Default().
// Unknown keys are errors.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration over Default() and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.Schema = expandVars(c.Schema)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := levels[c.Log.Level]; !ok {
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json; got %q", c.Log.Format))
	}
	if c.Stream.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("stream.block_size must be positive; got %d", c.Stream.BlockSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel returns the configured log level. Unknown levels map to info.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := levels[c.Log.Level]; ok {
		return l
	}
	return slog.LevelInfo
}

// NewLogger builds a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
