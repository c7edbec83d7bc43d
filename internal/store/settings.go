// ABOUTME: Runtime settings persistence as key/value rows, seeded with defaults.
// ABOUTME: Settings are tunable at runtime, unlike process configuration.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys known to the system
const (
	SettingOllamaModel          = "ollama_model"
	SettingOllamaURL            = "ollama_api_url"
	SettingAnalysisPrompt       = "analysis_prompt"
	SettingIgnoredContainers    = "ignored_containers"
	SettingScanIntervalMinutes  = "scan_interval_minutes"
	SettingSummaryIntervalHours = "summary_interval_hours"
	SettingLogLinesToFetch      = "log_lines_to_fetch"
	SettingAPIKey               = "api_key"
)

const defaultAnalysisPrompt = `Analyze the following container logs for operational problems such as crashes, repeated errors, resource exhaustion, or failed dependencies.
If the logs show normal operation, respond with exactly: NORMAL
If you find a problem, describe it in one or two sentences, then quote the decisive log line(s) after the phrase "Relevant Log(s):".
If you cannot analyze the logs, respond with a single line starting with "ERROR:" describing why.

Logs:
{logs}`

// DefaultSettings are seeded into the settings table on first open.
// Existing values are never overwritten.
func DefaultSettings() map[string]string {
	return map[string]string{
		SettingOllamaModel:          "phi3",
		SettingOllamaURL:            "http://localhost:11434",
		SettingAnalysisPrompt:       defaultAnalysisPrompt,
		SettingIgnoredContainers:    "[]",
		SettingScanIntervalMinutes:  "180",
		SettingSummaryIntervalHours: "12",
		SettingLogLinesToFetch:      "100",
		SettingAPIKey:               "",
	}
}

func (s *Store) seedDefaultSettings(ctx context.Context) error {
	for key, value := range DefaultSettings() {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("seed default setting %q: %w", key, err)
		}
	}
	return nil
}

// GetSettings returns all settings as a map
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}
	return out, nil
}

// GetSetting returns one setting value, or "" when the key is absent
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("query setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting writes one setting value, creating the key if needed
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}
