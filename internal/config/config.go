package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"polymarket-scraper/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Export    ExportConfig    `mapstructure:"export"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// APIConfig covers Gamma API connectivity and pagination.
type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	SiteBaseURL     string        `mapstructure:"site_base_url"`
	ExplorerBaseURL string        `mapstructure:"explorer_base_url"`
	PageLimit       int           `mapstructure:"page_limit"`
	MaxPages        int           `mapstructure:"max_pages"`
	RequestDelay    time.Duration `mapstructure:"request_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// SchedulerConfig governs scrape cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	ErrorCooldown   time.Duration `mapstructure:"error_cooldown"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// DashboardConfig controls the terminal view.
type DashboardConfig struct {
	Category string `mapstructure:"category"`
	MaxRows  int    `mapstructure:"max_rows"`
}

// ExportConfig sets file export behaviour.
type ExportConfig struct {
	Dir     string   `mapstructure:"dir"`
	Enabled bool     `mapstructure:"enabled"`
	Formats []string `mapstructure:"formats"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config describes the optional upload target for exports.
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// RedisConfig configures publication of the latest snapshot.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AlertingConfig defines cycle notifications.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	TopEvents int            `mapstructure:"top_events"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 通知参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POLYSCRAPER")
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
	v.SetDefault("app.name", "polyscraper")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	v.SetDefault("api.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("api.site_base_url", "https://polymarket.com/event")
	v.SetDefault("api.explorer_base_url", "https://polygonscan.com/address")
	v.SetDefault("api.page_limit", 100)
	v.SetDefault("api.max_pages", 50)
	v.SetDefault("api.request_delay", "50ms")
	v.SetDefault("api.request_timeout", "15s")
	v.SetDefault("api.max_attempts", 3)
	v.SetDefault("api.backoff_base", "1s")
	v.SetDefault("api.user_agent", "PolymarketScraper/1.0")

	v.SetDefault("scheduler.interval", "30s")
	v.SetDefault("scheduler.error_cooldown", "5s")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x706f6c79))

	v.SetDefault("dashboard.category", "")
	v.SetDefault("dashboard.max_rows", 50)

	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.formats", []string{"csv", "json"})
	v.SetDefault("export.s3.enabled", false)
	v.SetDefault("export.s3.prefix", "polyscraper")
	v.SetDefault("export.s3.region", "us-east-1")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("redis.key_prefix", "polyscraper")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.top_events", 5)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
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

var exportFormats = map[string]bool{"csv": true, "json": true, "xlsx": true, "png": true}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) url, got %q", c.API.BaseURL)
	}
	if c.API.PageLimit <= 0 {
		return fmt.Errorf("api.page_limit must be greater than zero")
	}
	if c.API.MaxPages <= 0 {
		return fmt.Errorf("api.max_pages must be greater than zero")
	}
	if c.API.MaxAttempts <= 0 {
		return fmt.Errorf("api.max_attempts must be greater than zero")
	}
	if c.API.RequestDelay < 0 {
		return fmt.Errorf("api.request_delay cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.ErrorCooldown < 0 {
		return fmt.Errorf("scheduler.error_cooldown cannot be negative")
	}
	if c.Dashboard.MaxRows < 0 {
		return fmt.Errorf("dashboard.max_rows cannot be negative")
	}
	for _, f := range c.Export.Formats {
		if !exportFormats[strings.ToLower(strings.TrimSpace(f))] {
			return fmt.Errorf("export.formats: unsupported format %q", f)
		}
	}
	if c.Export.S3.Enabled && c.Export.S3.Bucket == "" {
		return fmt.Errorf("export.s3.bucket must be set when export.s3.enabled")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Dashboard.MaxRows
}
