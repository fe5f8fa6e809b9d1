package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BACKROOM_API_TOKEN", "")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.Storage.Driver != DriverFile || !strings.HasPrefix(cfg.Storage.Dir, home) {
		t.Fatalf("Storage = %#v, want file driver under HOME", cfg.Storage)
	}
	if cfg.RequestLogLimit != defaultRequestLogLimit {
		t.Fatalf("RequestLogLimit = %d, want %d", cfg.RequestLogLimit, defaultRequestLogLimit)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("PollInterval = %v, want %v", cfg.PollInterval, defaultPollInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.Realtime.Enabled() {
		t.Fatal("Realtime should be disabled without url and app_key")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BACKROOM_API_TOKEN", "")

	cfg, err := Load(writeConfig(t, `
api_url = "  https://pos.example.com  "
api_token = " secret "
log_file = "  ~/logs/backroom.log  "
log_level = "debug"
request_log_limit = 0
poll_seconds = 5
metrics_addr = " 127.0.0.1:9464 "

[realtime]
url = "wss://ws.example.com"
app_key = " key "

[storage]
driver = "SQLite"
dir = "~/data"
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://pos.example.com" || cfg.APIToken != "secret" {
		t.Fatalf("api = %q/%q", cfg.APIURL, cfg.APIToken)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.RequestLogLimit != 0 {
		t.Fatalf("RequestLogLimit = %d, want 0 (unbounded)", cfg.RequestLogLimit)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.MetricsAddr != "127.0.0.1:9464" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if !cfg.Realtime.Enabled() || cfg.Realtime.AppKey != "key" {
		t.Fatalf("Realtime = %#v", cfg.Realtime)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath() != filepath.Join(home, "data", "backroom.db") {
		t.Fatalf("SQLitePath = %q", cfg.Storage.SQLitePath())
	}
}

func TestLoad_TokenFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BACKROOM_API_TOKEN", "from-env")

	cfg, err := Load(writeConfig(t, `api_token = "from-file"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Fatalf("APIToken = %q, want from-env", cfg.APIToken)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid toml", `api_url = [`, "parse config"},
		{"unknown driver", "[storage]\ndriver = \"redis\"", "storage driver"},
		{"bad level", `log_level = "loud"`, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load returned nil error, want %s error", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
