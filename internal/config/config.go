// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"discord-alliance-bot/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Database DatabaseConfig `mapstructure:"database"`
	GGE      GGEConfig      `mapstructure:"gge"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Claims   ClaimsConfig   `mapstructure:"claims"`
}

// DiscordConfig holds the bot token and the channels the bot operates in.
type DiscordConfig struct {
	Token                       string `mapstructure:"token"`
	GuildID                     string `mapstructure:"guild_id"`
	VerificationParentChannelID string `mapstructure:"verification_parent_channel_id"`
	LeadershipChannelID         string `mapstructure:"leadership_channel_id"`
	TechAdminLogChannelID       string `mapstructure:"tech_admin_log_channel_id"`
}

// RolesConfig holds the managed Discord role vocabulary.
// Rank maps rank codes (0-9, leader through novice) to role IDs and
// Alliance maps tracked alliance IDs to their group role IDs.
type RolesConfig struct {
	Rank     map[int]string   `mapstructure:"rank"`
	Alliance map[int64]string `mapstructure:"alliance"`
	Visitor  string           `mapstructure:"visitor"`
	Alumni   string           `mapstructure:"alumni"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// GGEConfig holds the tracker API client configuration.
type GGEConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServerCode string `mapstructure:"server_code"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// SyncConfig holds the membership ingestion configuration.
// AllianceNames supplies display labels for the wizard's alliance menu;
// missing entries fall back to "Alliance <id>".
type SyncConfig struct {
	AllianceIDs   []int64          `mapstructure:"alliance_ids"`
	AllianceNames map[int64]string `mapstructure:"alliance_names"`
	IntervalHours int              `mapstructure:"interval_hours"`
}

// AllianceLabel returns the display label for a tracked alliance.
func (c *Config) AllianceLabel(allianceID int64) string {
	if name, ok := c.Sync.AllianceNames[allianceID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Alliance %d", allianceID)
}

// ClaimsConfig holds claim lifecycle knobs.
type ClaimsConfig struct {
	ExpiryDays    int `mapstructure:"expiry_days"`
	RetentionDays int `mapstructure:"retention_days"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DISCORD_TOKEN, DATABASE_HOST, SYNC_INTERVAL_HOURS.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is OK - env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "alliancebot")
	v.SetDefault("database.name", "alliancebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Tracker API defaults
	v.SetDefault("gge.base_url", "https://api.gge-tracker.com/api/v1")
	v.SetDefault("gge.server_code", "WORLD2")
	v.SetDefault("gge.max_retries", 3)

	// Sync defaults
	v.SetDefault("sync.alliance_ids", []int64{530061, 10061})
	v.SetDefault("sync.interval_hours", 12)

	// Claim lifecycle defaults
	v.SetDefault("claims.expiry_days", 7)
	v.SetDefault("claims.retention_days", 7)
}

// validate checks the invariants the rest of the system relies on.
func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required")
	}
	if c.Discord.GuildID == "" {
		return fmt.Errorf("discord guild_id is required")
	}
	if c.Discord.VerificationParentChannelID == "" {
		return fmt.Errorf("discord verification_parent_channel_id is required")
	}
	if c.Discord.LeadershipChannelID == "" {
		return fmt.Errorf("discord leadership_channel_id is required")
	}
	if c.Roles.Visitor == "" || c.Roles.Alumni == "" {
		return fmt.Errorf("visitor and alumni role ids are required")
	}
	if len(c.Sync.AllianceIDs) == 0 {
		return fmt.Errorf("at least one tracked alliance id is required")
	}
	for _, id := range c.Sync.AllianceIDs {
		if _, ok := c.Roles.Alliance[id]; !ok {
			return fmt.Errorf("tracked alliance %d has no group role configured", id)
		}
	}
	return nil
}

// IsTrackedAlliance checks if an alliance ID is in the sync list.
func (c *Config) IsTrackedAlliance(allianceID int64) bool {
	for _, id := range c.Sync.AllianceIDs {
		if id == allianceID {
			return true
		}
	}
	return false
}

// LeadershipRoleIDs returns the role IDs whose holders may review claims:
// the rank roles for leader through recruiter.
func (c *Config) LeadershipRoleIDs() map[string]bool {
	ids := make(map[string]bool)
	for code, roleID := range c.Roles.Rank {
		if model.LeadershipRankCodes[code] && roleID != "" {
			ids[roleID] = true
		}
	}
	return ids
}
