// Package config provides the YAML-based application configuration,
// including first-run config creation, normalization of missing values
// and atomic 0600 saves.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"workcal/internal/errs"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging and cache keying.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SlackConfig is the flat settings record for the messaging transport.
type SlackConfig struct {
	// WebhookURL receives the daily text notification.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
	// BotToken authorizes the chart file upload.
	BotToken string `yaml:"bot_token" json:"bot_token"`
	// ChannelName is the upload destination channel.
	ChannelName string `yaml:"channel_name" json:"channel_name"`
	// FileUploadURL is the file-upload endpoint; overridable for tests.
	FileUploadURL string `yaml:"file_upload_url,omitempty" json:"file_upload_url,omitempty"`
}

// TablesConfig names the three tables in the tabular store.
type TablesConfig struct {
	// Config is the color-to-category mapping table.
	Config string `yaml:"config" json:"config"`
	// RawLog is the append-only event log table.
	RawLog string `yaml:"raw_log" json:"raw_log"`
	// Summary is the per-day totals table.
	Summary string `yaml:"summary" json:"summary"`
}

// ChartConfig controls the optional summary chart upload.
type ChartConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Rows is how many recent summary rows the chart covers.
	Rows   int `yaml:"rows" json:"rows"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone the pipeline runs in (e.g. "Asia/Tokyo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Schedule is a cron expression for the daily run.
	Schedule string `yaml:"schedule" json:"schedule"`

	// UserEmail identifies the calendar owner for attendance filtering.
	UserEmail string `yaml:"user_email" json:"user_email"`

	// DatabasePath is the SQLite file backing the tabular store.
	DatabasePath string `yaml:"database_path" json:"database_path"`

	// ICS is the list of subscribed calendar sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Tables TablesConfig `yaml:"tables" json:"tables"`
	Slack  SlackConfig  `yaml:"slack" json:"slack"`
	Chart  ChartConfig  `yaml:"chart" json:"chart"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:     "Asia/Tokyo",
		Schedule:     "0 19 * * *",
		DatabasePath: "./var/workcal.db",
		ICS:          []ICSConfig{},
		Tables: TablesConfig{
			Config:  "config",
			RawLog:  "raw data",
			Summary: "summary",
		},
		Slack: SlackConfig{
			FileUploadURL: "https://slack.com/api/files.upload",
		},
		Chart: ChartConfig{
			Enabled: false,
			Rows:    5,
			Width:   720,
			Height:  480,
		},
	}
}

// Normalize fills in missing/zero values with defaults so partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Asia/Tokyo"
	}
	if c.Schedule == "" {
		c.Schedule = "0 19 * * *"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "./var/workcal.db"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Tables.Config == "" {
		c.Tables.Config = "config"
	}
	if c.Tables.RawLog == "" {
		c.Tables.RawLog = "raw data"
	}
	if c.Tables.Summary == "" {
		c.Tables.Summary = "summary"
	}
	if c.Slack.FileUploadURL == "" {
		c.Slack.FileUploadURL = "https://slack.com/api/files.upload"
	}
	if c.Chart.Rows <= 0 {
		c.Chart.Rows = 5
	}
	if c.Chart.Width <= 0 {
		c.Chart.Width = 720
	}
	if c.Chart.Height <= 0 {
		c.Chart.Height = 480
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, err, "unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

// Validate checks the parts of the config the pipeline cannot run
// without. Chart settings are checked only when the chart is enabled.
func (c *Config) Validate() error {
	if len(c.ICS) == 0 {
		return errs.New(errs.CodeConfiguration, "no ICS sources configured")
	}
	if c.Slack.WebhookURL == "" {
		return errs.New(errs.CodeConfiguration, "slack webhook_url is not set")
	}
	if c.Chart.Enabled {
		if c.Slack.BotToken == "" {
			return errs.New(errs.CodeConfiguration, "chart enabled but slack bot_token is not set")
		}
		if c.Slack.ChannelName == "" {
			return errs.New(errs.CodeConfiguration, "chart enabled but slack channel_name is not set")
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned, so a first run leaves an editable template behind.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errs.New(errs.CodeConfiguration, "config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, errs.Wrap(errs.CodeConfiguration, err, "read config %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, err, "parse config %q", path)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with final permissions 0600; the parent directory is created if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errs.New(errs.CodeConfiguration, "config path is empty")
	}
	if cfg == nil {
		return errs.New(errs.CodeConfiguration, "config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "create config dir %q", dir)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "marshal config")
	}

	tmp, err := os.CreateTemp(dir, ".workcal-config-*.tmp")
	if err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "create temp config")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
