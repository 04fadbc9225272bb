package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultMaxTextBytes caps candidate text accepted at the service boundary.
const DefaultMaxTextBytes = 4 << 20

// #region config
// Config holds runtime settings for the ruleset daemon and CLIs.
type Config struct {
	DBPath           string `yaml:"db_path"`
	GRPCAddr         string `yaml:"grpc_addr"`
	RedisURL         string `yaml:"redis_url"` // empty disables verdict publishing
	VerdictStream    string `yaml:"verdict_stream"`
	LogLevel         string `yaml:"log_level"`
	DiversifyEnabled bool   `yaml:"diversify_enabled"`
	MaxTextBytes     int    `yaml:"max_text_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:        "ruleset.db",
		GRPCAddr:      "localhost:50061",
		VerdictStream: "ruleset_verdicts",
		LogLevel:      "info",
		MaxTextBytes:  DefaultMaxTextBytes,
	}
}

// #endregion config

// #region load
// Load builds a Config from defaults, then the YAML file at path (if path is
// non-empty), then RULESET_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.DBPath = envOr("RULESET_DB", c.DBPath)
	c.GRPCAddr = envOr("RULESET_ADDR", c.GRPCAddr)
	c.RedisURL = envOr("RULESET_REDIS_URL", c.RedisURL)
	c.VerdictStream = envOr("RULESET_VERDICT_STREAM", c.VerdictStream)
	c.LogLevel = envOr("RULESET_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("RULESET_DIVERSIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse RULESET_DIVERSIFY: %w", err)
		}
		c.DiversifyEnabled = b
	}
	if v := os.Getenv("RULESET_MAX_TEXT_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RULESET_MAX_TEXT_BYTES: %w", err)
		}
		c.MaxTextBytes = n
	}
	return nil
}

// #endregion load

// #region validate
// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GRPCAddr) == "" {
		errs = append(errs, errors.New("grpc_addr is empty"))
	}
	if c.MaxTextBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_text_bytes must be positive, got %d", c.MaxTextBytes))
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("log_level: %w", err))
		}
	}
	if c.RedisURL != "" && c.VerdictStream == "" {
		errs = append(errs, errors.New("verdict_stream is empty while redis_url is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
