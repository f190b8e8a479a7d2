package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trading Journal Configuration

[data]
# Record store: "sqlite", "sheets" or "memory"
source = "sqlite"
# SQLite database file (defaults to journal.db next to this file)
# sqlite_path = "/path/to/journal.db"

[sheets]
# Google Apps Script web app URL (or set JOURNAL_SHEETS_URL)
script_url = ""
# Per-request timeout
timeout = "30s"
# Attempts per request for transient failures
max_attempts = 3
# Outbound request rate limit; 0 disables limiting
requests_per_second = 2.0
# Consecutive unavailable responses before pausing requests; 0 disables
breaker_threshold = 5
# How long requests stay paused
breaker_cooldown = "30s"

[server]
# HTTP API port (or set JOURNAL_PORT)
port = 8080
# Allowed CORS origin
cors_origin = "*"

[analytics]
# Default dashboard window: all, 7d, 30d, 90d, 365d
default_window = "all"
# Only count trades whose strategy is active
active_only = false

[logging]
# Level: debug, info, warn, error
level = "info"
# Write rotated log files under logs/
file = true
max_size_mb = 50
max_backups = 5
max_age_days = 30
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
