package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "cursor-usage"

type NotificationsConfig struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"` // percent, 0-100
	Webhook   string  `json:"webhook"`
	NtfyURL   string  `json:"ntfy"`
}

type AuthConfig struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"` // bcrypt; empty disables auth
}

type WebserverConfig struct {
	Enabled bool       `json:"enabled"`
	Port    int        `json:"port"`
	Host    string     `json:"host"`
	Auth    AuthConfig `json:"auth"`
}

type Config struct {
	Language        string              `json:"language"`
	RefreshInterval int64               `json:"refreshInterval"` // seconds
	CredentialStore string              `json:"credentialStore"` // overrides the platform default
	APIBaseURL      string              `json:"apiBaseURL"`
	LogDir          string              `json:"logDir"`
	LogLevel        string              `json:"logLevel"`
	HistoryDays     int                 `json:"historyDays"` // 0 disables the snapshot history
	Notifications   NotificationsConfig `json:"notifications"`
	Webserver       WebserverConfig     `json:"webserver"`
}

func Defaults() Config {
	return Config{
		Language:        LanguageChinese.String(),
		RefreshInterval: IntervalFiveMinutes.Seconds(),
		LogDir:          filepath.Join(xdg.StateHome, appName),
		LogLevel:        "info",
		HistoryDays:     30,
		Notifications:   NotificationsConfig{Threshold: 80},
		Webserver: WebserverConfig{
			Port: 7878,
			Host: "127.0.0.1",
		},
	}
}

func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

// HistoryPath is the sqlite file holding past snapshots.
func HistoryPath() string {
	return filepath.Join(xdg.DataHome, appName, "history.db")
}

// Lang is the configured language, falling back to Chinese.
func (c Config) Lang() Language {
	return ParseLanguage(c.Language)
}

// Interval is the configured refresh interval, falling back to five minutes.
func (c Config) Interval() Interval {
	return IntervalFromSeconds(c.RefreshInterval)
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path, replacing any existing file in one rename.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
