package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultMaxHeaderBytes caps the JSON header of a safetensors file.
const DefaultMaxHeaderBytes = 100 << 20

type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Recursive makes directory discovery descend into subdirectories.
	Recursive bool `mapstructure:"recursive"`
	// Workers bounds concurrent file reads.
	Workers        int    `mapstructure:"workers"`
	MaxHeaderBytes int64  `mapstructure:"max_header_bytes"`
	OllamaDir      string `mapstructure:"ollama_dir"`

	MetricsFile  string `mapstructure:"metrics_file"`
	ShowMetadata bool   `mapstructure:"show_metadata"`
	// Color is auto, always or never.
	Color string `mapstructure:"color"`

	Serve ServeConfig `mapstructure:"serve"`
}

type ServeConfig struct {
	FlightAddr      string `mapstructure:"flight_addr"`
	HTTPAddr        string `mapstructure:"http_addr"`
	MaxMessageBytes int    `mapstructure:"max_message_bytes"`
}

func (c *Config) Validate() error {
	if !oneOf(strings.ToLower(c.LogLevel), "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn or error)", c.LogLevel)
	}
	if !oneOf(strings.ToLower(c.LogFormat), "console", "json") {
		return fmt.Errorf("invalid log_format: %q (must be console or json)", c.LogFormat)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", c.Workers)
	}
	if c.Workers > 256 {
		return fmt.Errorf("invalid workers: %d (must be <= 256)", c.Workers)
	}
	if c.MaxHeaderBytes <= 0 {
		return fmt.Errorf("invalid max_header_bytes: %d (must be positive)", c.MaxHeaderBytes)
	}
	if !oneOf(c.Color, "auto", "always", "never") {
		return fmt.Errorf("invalid color: %q (must be auto, always or never)", c.Color)
	}
	if c.Serve.FlightAddr == "" {
		return errors.New("invalid serve.flight_addr: must not be empty")
	}
	if c.Serve.HTTPAddr != "" && c.Serve.HTTPAddr == c.Serve.FlightAddr {
		return fmt.Errorf("serve.http_addr and serve.flight_addr must differ (both %s)", c.Serve.HTTPAddr)
	}
	if c.Serve.MaxMessageBytes <= 0 {
		return fmt.Errorf("invalid serve.max_message_bytes: %d (must be positive)", c.Serve.MaxMessageBytes)
	}
	return nil
}

func Default() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      "console",
		Workers:        4,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		ShowMetadata:   true,
		Color:          "auto",
		Serve: ServeConfig{
			FlightAddr:      "localhost:3000",
			HTTPAddr:        "localhost:9090",
			MaxMessageBytes: 64 << 20,
		},
	}
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"log-format":   "log_format",
	"recursive":    "recursive",
	"workers":      "workers",
	"metrics-file": "metrics_file",
	"ollama-dir":   "ollama_dir",
	"color":        "color",
	"flight-addr":  "serve.flight_addr",
	"http-addr":    "serve.http_addr",
}

// Load layers defaults, an optional YAML file, LENS_* environment
// variables and changed flags, in increasing precedence. An empty
// cfgFile searches ~/.lens and the working directory for lens.yaml.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, &cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".lens"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("lens")
	}

	v.SetEnvPrefix("LENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.OllamaDir = expandPath(cfg.OllamaDir)
	cfg.MetricsFile = expandPath(cfg.MetricsFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("recursive", cfg.Recursive)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("max_header_bytes", cfg.MaxHeaderBytes)
	v.SetDefault("ollama_dir", cfg.OllamaDir)
	v.SetDefault("metrics_file", cfg.MetricsFile)
	v.SetDefault("show_metadata", cfg.ShowMetadata)
	v.SetDefault("color", cfg.Color)
	v.SetDefault("serve.flight_addr", cfg.Serve.FlightAddr)
	v.SetDefault("serve.http_addr", cfg.Serve.HTTPAddr)
	v.SetDefault("serve.max_message_bytes", cfg.Serve.MaxMessageBytes)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
