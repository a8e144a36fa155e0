// Package config loads and validates the ledger.yml configuration shared by
// the ledgerd daemon and the ledgerctl CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledger.yml configuration.
type Config struct {
	Version  string        `yaml:"version"`
	RedisURL string        `yaml:"redis_url"`
	Ledger   LedgerConfig  `yaml:"ledger"`
	Slack    *SlackConfig  `yaml:"slack,omitempty"`
	Report   *ReportConfig `yaml:"report,omitempty"`
}

// LedgerConfig specifies the document identity and reconciliation behavior.
type LedgerConfig struct {
	Instance           string `yaml:"instance"`                       // Redis key namespace
	Document           string `yaml:"document"`                       // logical document path
	CacheTTLSeconds    *int   `yaml:"cache_ttl_seconds,omitempty"`    // per-author read cache TTL (default 30, 0 disables)
	MaxRetries         *int   `yaml:"max_retries,omitempty"`          // conflict retry budget (default 3)
	EmptyMessagePolicy string `yaml:"empty_message_policy,omitempty"` // "ignore" (default) or "clear"
	TimestampLayout    string `yaml:"timestamp_layout,omitempty"`     // Go time layout for section timestamps
}

// SlackConfig configures the Slack transport of ledgerd.
type SlackConfig struct {
	BotToken       string `yaml:"bot_token"`
	AppID          string `yaml:"app_id,omitempty"`
	ListenPort     int    `yaml:"listen_port,omitempty"`
	EventPath      string `yaml:"event_path,omitempty"`
	DefaultChannel string `yaml:"default_channel,omitempty"`
}

// ReportConfig configures the periodic all-sections summary.
type ReportConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"` // 0 disables the report job
	Channel         string `yaml:"channel,omitempty"`
}

// Validate performs strict validation and applies documented defaults.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}

	if err := c.Ledger.validate(); err != nil {
		return err
	}

	if c.Slack != nil {
		if c.Slack.BotToken == "" {
			return fmt.Errorf("slack: bot_token is required")
		}
		if c.Slack.ListenPort < 0 {
			return fmt.Errorf("slack: listen_port must be >= 0, got %d", c.Slack.ListenPort)
		}
	}

	if c.Report != nil {
		if c.Report.IntervalMinutes < 0 {
			return fmt.Errorf("report: interval_minutes must be >= 0 (0 = disabled), got %d", c.Report.IntervalMinutes)
		}
		if c.Report.IntervalMinutes > 0 && c.Report.Channel == "" {
			return fmt.Errorf("report: channel is required when interval_minutes > 0")
		}
	}

	return nil
}

func (l *LedgerConfig) validate() error {
	if l.Instance == "" {
		return fmt.Errorf("ledger: instance is required")
	}
	if l.Document == "" {
		return fmt.Errorf("ledger: document is required")
	}

	if l.CacheTTLSeconds == nil {
		defaultTTL := 30
		l.CacheTTLSeconds = &defaultTTL
	}
	if *l.CacheTTLSeconds < 0 {
		return fmt.Errorf("ledger: cache_ttl_seconds must be >= 0 (0 = disabled), got %d", *l.CacheTTLSeconds)
	}

	if l.MaxRetries == nil {
		defaultRetries := 3
		l.MaxRetries = &defaultRetries
	}
	if *l.MaxRetries < 1 {
		return fmt.Errorf("ledger: max_retries must be >= 1, got %d", *l.MaxRetries)
	}

	if l.EmptyMessagePolicy == "" {
		l.EmptyMessagePolicy = "ignore"
	}
	if l.EmptyMessagePolicy != "ignore" && l.EmptyMessagePolicy != "clear" {
		return fmt.Errorf("ledger: invalid empty_message_policy: %s (must be 'ignore' or 'clear')", l.EmptyMessagePolicy)
	}

	if l.TimestampLayout == "" {
		l.TimestampLayout = "2006-01-02 15:04"
	}

	return nil
}

// CacheTTL returns the configured cache TTL as a duration.
func (l *LedgerConfig) CacheTTL() time.Duration {
	if l.CacheTTLSeconds == nil {
		return 30 * time.Second
	}
	return time.Duration(*l.CacheTTLSeconds) * time.Second
}

// Load reads and validates ledger.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
