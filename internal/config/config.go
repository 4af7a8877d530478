package config

import (
	"fmt"
	"strings"

	"github.com/paycore/internal/logger"

	"github.com/spf13/viper"
)

// Config is the application configuration tree.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Gateways GatewaysConfig `mapstructure:"gateways"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig holds the rotating log file settings.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig tunes the sql.DB connection pool.
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig selects the database driver and DSN.
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig configures the shared redis client.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig configures the asynq client and worker server.
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// BillingConfig carries the charge-eligibility knobs used by the batch
// pipeline and the single-payment handlers.
type BillingConfig struct {
	BatchPageSize          int    `mapstructure:"batch_page_size"`
	MaxConsecutiveDeclines int    `mapstructure:"max_consecutive_declines"`
	DailyDeclineCap        int    `mapstructure:"daily_decline_cap"`
	RefundWindowDays       int    `mapstructure:"refund_window_days"`
	CaptureWindowHours     int    `mapstructure:"capture_window_hours"`
	AccountLockTTLSeconds  int    `mapstructure:"account_lock_ttl_seconds"`
	UnpaidInvoiceCron      string `mapstructure:"unpaid_invoice_cron"`
	RefundDiscoveryCron    string `mapstructure:"refund_discovery_cron"`
	AchSettlementCron      string `mapstructure:"ach_settlement_cron"`
	AreaIDs                []int  `mapstructure:"area_ids"`
}

// GatewaysConfig configures the gateway adapters.
type GatewaysConfig struct {
	Sandbox SandboxGatewayConfig `mapstructure:"sandbox"`
}

// SandboxGatewayConfig configures the sandbox HTTP adapter.
type SandboxGatewayConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MerchantID string `mapstructure:"merchant_id"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// Load reads config.yml plus PAYCORE-style env overrides.
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // when running from cmd/server
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "paycore.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/paycore.db")
	viper.SetDefault("database.pool.max_open_conns", 10)
	viper.SetDefault("database.pool.max_idle_conns", 5)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "paycore")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 5,
		"batch":   10,
	})
	viper.SetDefault("billing.batch_page_size", 500)
	viper.SetDefault("billing.max_consecutive_declines", 3)
	viper.SetDefault("billing.daily_decline_cap", 1)
	viper.SetDefault("billing.refund_window_days", 45)
	viper.SetDefault("billing.capture_window_hours", 168)
	viper.SetDefault("billing.account_lock_ttl_seconds", 300)
	viper.SetDefault("billing.unpaid_invoice_cron", "0 6 * * *")
	viper.SetDefault("billing.refund_discovery_cron", "30 6 * * *")
	viper.SetDefault("billing.ach_settlement_cron", "0 7 * * *")
	viper.SetDefault("billing.area_ids", []int{})
	viper.SetDefault("gateways.sandbox.base_url", "http://127.0.0.1:9090")
	viper.SetDefault("gateways.sandbox.merchant_id", "")
	viper.SetDefault("gateways.sandbox.api_key", "")
	viper.SetDefault("gateways.sandbox.timeout_ms", 15000)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // billing.daily_decline_cap -> BILLING_DAILY_DECLINE_CAP

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config parse failed: %w", err))
	}
	return &cfg
}
