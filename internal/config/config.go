package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"chainwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App           AppConfig              `mapstructure:"app"`
	Logging       logging.Config         `mapstructure:"logging"`
	Settings      SettingsConfig         `mapstructure:"settings"`
	Scheduler     SchedulerConfig        `mapstructure:"scheduler"`
	Chains        map[string]ChainConfig `mapstructure:"chains"`
	Queries       []QueryConfig          `mapstructure:"queries"`
	Alerts        []AlertConfig          `mapstructure:"alerts"`
	Notifications NotificationsConfig    `mapstructure:"notifications"`
	Database      DatabaseConfig         `mapstructure:"database"`
	Health        HealthConfig           `mapstructure:"health"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SettingsConfig carries the polling, retry, and proxy knobs.
type SettingsConfig struct {
	IntervalMinutes      float64       `mapstructure:"interval_minutes"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryDelaySeconds    float64       `mapstructure:"retry_delay_seconds"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	MaxConcurrentQueries int           `mapstructure:"max_concurrent_queries"`
	UseProxy             bool          `mapstructure:"use_proxy"`
	ProxyURL             string        `mapstructure:"proxy_url"`
	// LogRetentionDays is consumed by the external log rotation tooling,
	// not by this process. Kept here so one file configures the deployment.
	LogRetentionDays int `mapstructure:"log_retention_days"`
}

// Interval converts the configured minutes into a duration.
func (s SettingsConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes * float64(time.Minute))
}

// RetryDelay converts the configured seconds into a duration.
func (s SettingsConfig) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelaySeconds * float64(time.Second))
}

// SchedulerConfig governs tick cadence details beyond the base interval.
type SchedulerConfig struct {
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// ChainConfig describes one explorer endpoint.
type ChainConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	RPCURL  string `mapstructure:"rpc_url"`
}

// QueryConfig is the raw form of a query definition.
type QueryConfig struct {
	ID        string            `mapstructure:"id"`
	ChainName string            `mapstructure:"chain_name"`
	Params    map[string]string `mapstructure:"params"`
}

// AlertConfig is the raw form of an alert definition.
type AlertConfig struct {
	ID              string  `mapstructure:"id"`
	Name            string  `mapstructure:"name"`
	Description     string  `mapstructure:"description"`
	QueryID         string  `mapstructure:"query_id"`
	RefQueryID      string  `mapstructure:"ref_query_id"`
	Type            string  `mapstructure:"type"`
	Operator        string  `mapstructure:"operator"`
	Threshold       float64 `mapstructure:"threshold"`
	Urgency         string  `mapstructure:"urgency"`
	CooldownMinutes float64 `mapstructure:"cooldown_minutes"`
}

// NotificationsConfig routes alert delivery.
type NotificationsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// DatabaseConfig encapsulates the optional PostgreSQL audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// HealthConfig controls the HTTP health/metrics listener.
type HealthConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAINWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chainwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("settings.interval_minutes", 1.0)
	v.SetDefault("settings.max_retries", 3)
	v.SetDefault("settings.retry_delay_seconds", 2.0)
	v.SetDefault("settings.request_timeout", "30s")
	v.SetDefault("settings.max_concurrent_queries", 4)
	v.SetDefault("settings.use_proxy", false)
	v.SetDefault("settings.log_retention_days", 7)

	v.SetDefault("scheduler.align_to_interval", false)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63686169))

	v.SetDefault("chains.ethereum.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("chains.polygon.base_url", "https://api.polygonscan.com/api")
	v.SetDefault("chains.bsc.base_url", "https://api.bscscan.com/api")

	v.SetDefault("notifications.telegram.enabled", false)
	v.SetDefault("notifications.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs process-fatal sanity checks. Definition-level problems
// (bad queries/alerts) are handled by ResolveDefinitions so that one
// malformed entry never takes the whole monitor down.
func (c *Config) Validate() error {
	if c.Settings.IntervalMinutes <= 0 {
		return fmt.Errorf("settings.interval_minutes must be greater than zero")
	}
	if c.Settings.MaxRetries < 0 {
		return fmt.Errorf("settings.max_retries cannot be negative")
	}
	if c.Settings.RetryDelaySeconds < 0 {
		return fmt.Errorf("settings.retry_delay_seconds cannot be negative")
	}
	if c.Settings.MaxConcurrentQueries <= 0 {
		return fmt.Errorf("settings.max_concurrent_queries must be greater than zero")
	}
	if c.Settings.UseProxy && c.Settings.ProxyURL == "" {
		return fmt.Errorf("settings.proxy_url 启用代理时必须配置")
	}
	if c.Notifications.Telegram.Enabled {
		if c.Notifications.Telegram.BotToken == "" {
			return fmt.Errorf("notifications.telegram.bot_token 必须配置")
		}
		if c.Notifications.Telegram.ChatID == "" {
			return fmt.Errorf("notifications.telegram.chat_id 必须配置")
		}
	}
	return nil
}
