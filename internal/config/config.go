package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/meikuraledutech/bpmn"
)

type Config struct {
	DatabaseURL string `toml:"database_url"` // BPMN_DATABASE_URL (optional, empty = sqlite)
	SQLitePath  string `toml:"sqlite_path"`  // BPMN_SQLITE_PATH (default "bpmn.db")
	HTTPAddr    string `toml:"http_addr"`    // BPMN_HTTP_ADDR (default ":3000")
	LogLevel    string `toml:"log_level"`    // BPMN_LOG_LEVEL (default "info")
	LogFormat   string `toml:"log_format"`   // BPMN_LOG_FORMAT (default "text")

	// Layout sizes the diagram entries synthesised for elements without one.
	Layout bpmn.Layout `toml:"layout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		SQLitePath: "bpmn.db",
		HTTPAddr:   ":3000",
		LogLevel:   "info",
		LogFormat:  "text",
		Layout:     bpmn.DefaultLayout(),
	}
}

// Load reads the TOML file named by BPMN_CONFIG, if any, over the defaults
// and then applies the BPMN_* environment variables, which win.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("BPMN_CONFIG"); path != "" {
		if err := c.decodeFile(path); err != nil {
			return nil, err
		}
	}

	c.DatabaseURL = envOrDefault("BPMN_DATABASE_URL", c.DatabaseURL)
	c.SQLitePath = envOrDefault("BPMN_SQLITE_PATH", c.SQLitePath)
	c.HTTPAddr = envOrDefault("BPMN_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = envOrDefault("BPMN_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("BPMN_LOG_FORMAT", c.LogFormat)

	if _, err := c.level(); err != nil {
		return nil, err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("BPMN_LOG_FORMAT: unknown format %q", c.LogFormat)
	}
	return c, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("BPMN_CONFIG: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("BPMN_CONFIG: unknown key %q", undecoded[0].String())
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("BPMN_LOG_LEVEL: %w", err)
	}
	return l, nil
}

// Logger builds a slog logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, err := c.level()
	if err != nil {
		l = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: l}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
