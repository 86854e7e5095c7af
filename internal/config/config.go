// Package config loads byname settings. BYNAME_ environment variables
// override the YAML file, which overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

const (
	configFileName = "byname"
	configFileType = "yaml"
	envPrefix      = "BYNAME"

	KeyBackend   = "backend"
	KeyDB        = "db"
	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	// BackendAll runs scenarios on every backend.
	BackendAll = "all"
)

// Backends accepted for the backend key.
var Backends = []string{BackendAll, "memory", "docstore"}

// LogFormats accepted for the log.format key.
var LogFormats = []string{"text", "json"}

// Config holds the resolved settings.
type Config struct {
	Backend string
	DB      string
	Log     LogConfig

	// File is the config file that was read, empty when none was found.
	File string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads settings. An explicit path must exist; without one,
// ./byname.yaml is read when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyBackend, BackendAll)
	v.SetDefault(KeyDB, "byname.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Backend: v.GetString(KeyBackend),
		DB:      v.GetString(KeyDB),
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("invalid backend %q: must be one of %v", c.Backend, Backends)
	}
	if c.DB == "" {
		return fmt.Errorf("db must not be empty")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		return fmt.Errorf("invalid log format %q: must be one of %v", c.Log.Format, LogFormats)
	}
	return nil
}

// BackendList expands Backend into the backend names to run on.
func (c *Config) BackendList(all []string) []string {
	if c.Backend == BackendAll {
		return all
	}
	return []string{c.Backend}
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w. verbose lowers the level to
// debug.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
