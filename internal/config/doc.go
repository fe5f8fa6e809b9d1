// Package config loads backroom's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/backroom/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// BACKROOM_API_TOKEN, when set, overrides api_token so the token can stay out
// of the file.
//
// # Default Values
//
//   - API: http://127.0.0.1:8000
//   - Storage: file driver in ~/.local/share/backroom
//   - Log file: ~/.local/state/backroom/backroom.log
//   - Request log limit: 200 entries (0 keeps everything)
//   - Poll interval: 30s
//   - Realtime: disabled
//
// # TOML Format
//
//	api_url = "https://pos.example.com"
//	api_token = "..."
//	log_file = "~/.local/state/backroom/backroom.log"
//	log_level = "info"
//	request_log_limit = 200
//	poll_seconds = 30
//	metrics_addr = "127.0.0.1:9464"
//
//	[realtime]
//	url = "wss://ws.pos.example.com"
//	app_key = "reverb-app-key"
//
//	[storage]
//	driver = "sqlite"
//	dir = "~/.local/share/backroom"
//
// Every field is optional. Tilde expansion is performed for paths.
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors, an unknown
// storage driver, or an unknown log level. A missing file is not an error.
package config
