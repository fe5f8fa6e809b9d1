package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything backroom reads from its config file.
type Config struct {
	APIURL          string
	APIToken        string
	Realtime        Realtime
	Storage         Storage
	LogFile         string
	LogLevel        slog.Level
	RequestLogLimit int
	PollInterval    time.Duration
	MetricsAddr     string
}

// Realtime locates the push server. An empty URL disables push updates and
// leaves the poller as the only refresh source.
type Realtime struct {
	URL    string
	AppKey string
}

// Enabled reports whether a push server is configured.
func (r Realtime) Enabled() bool {
	return r.URL != "" && r.AppKey != ""
}

// Storage selects the client-local persistence backend.
type Storage struct {
	Driver string // "file" or "sqlite"
	Dir    string
}

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// SQLitePath is the database file used by the sqlite driver.
func (s Storage) SQLitePath() string {
	return filepath.Join(s.Dir, "backroom.db")
}

const (
	defaultConfigPath      = "~/.config/backroom/config.toml"
	defaultAPIURL          = "http://127.0.0.1:8000"
	defaultStorageDir      = "~/.local/share/backroom"
	defaultLogFile         = "~/.local/state/backroom/backroom.log"
	defaultRequestLogLimit = 200
	defaultPollInterval    = 30 * time.Second
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

type rawConfig struct {
	APIURL   string `toml:"api_url"`
	APIToken string `toml:"api_token"`
	Realtime struct {
		URL    string `toml:"url"`
		AppKey string `toml:"app_key"`
	} `toml:"realtime"`
	Storage struct {
		Driver string `toml:"driver"`
		Dir    string `toml:"dir"`
	} `toml:"storage"`
	LogFile         string `toml:"log_file"`
	LogLevel        string `toml:"log_level"`
	RequestLogLimit *int   `toml:"request_log_limit"`
	PollSeconds     int    `toml:"poll_seconds"`
	MetricsAddr     string `toml:"metrics_addr"`
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return normalize(rawConfig{})
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return normalize(raw)
}

func normalize(raw rawConfig) (Config, error) {
	cfg := Config{
		APIURL:      orDefault(raw.APIURL, defaultAPIURL),
		APIToken:    strings.TrimSpace(raw.APIToken),
		MetricsAddr: strings.TrimSpace(raw.MetricsAddr),
		Realtime: Realtime{
			URL:    strings.TrimSpace(raw.Realtime.URL),
			AppKey: strings.TrimSpace(raw.Realtime.AppKey),
		},
		RequestLogLimit: defaultRequestLogLimit,
		PollInterval:    defaultPollInterval,
	}

	if env := strings.TrimSpace(os.Getenv("BACKROOM_API_TOKEN")); env != "" {
		cfg.APIToken = env
	}

	driver := strings.ToLower(orDefault(raw.Storage.Driver, DriverFile))
	if driver != DriverFile && driver != DriverSQLite {
		return Config{}, fmt.Errorf("storage driver %q: want %q or %q", driver, DriverFile, DriverSQLite)
	}
	cfg.Storage = Storage{Driver: driver, Dir: mustExpand(orDefault(raw.Storage.Dir, defaultStorageDir))}
	cfg.LogFile = mustExpand(orDefault(raw.LogFile, defaultLogFile))

	if lvl := strings.TrimSpace(raw.LogLevel); lvl != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return Config{}, fmt.Errorf("log_level: %w", err)
		}
	}
	if raw.RequestLogLimit != nil {
		cfg.RequestLogLimit = max(*raw.RequestLogLimit, 0)
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	return cfg, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
