// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Applications  ApplicationsConfig `mapstructure:"applications"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Renewals      RenewalsConfig     `mapstructure:"renewals"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Tracing       TracingConfig      `mapstructure:"tracing"`
	Uploads       UploadsConfig      `mapstructure:"uploads"`
	Security      SecurityConfig     `mapstructure:"security"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	TimeZone       string `mapstructure:"timezone"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
	if p.TimeZone != "" {
		dsn += " timezone=" + p.TimeZone
	}
	return dsn
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// --- Workflow Configuration ---

// ApplicationsConfig drives reference numbering, paging and SLA reporting.
type ApplicationsConfig struct {
	ReferencePrefix      string `mapstructure:"reference_prefix"`
	ReferenceMaxAttempts int    `mapstructure:"reference_max_attempts"`
	DefaultPageSize      int    `mapstructure:"default_page_size"`
	MaxPageSize          int    `mapstructure:"max_page_size"`
	DueSoonDays          int    `mapstructure:"due_soon_days"`
}

// NotificationConfig holds in-app notification settings and the optional email/SMS relay.
type NotificationConfig struct {
	SuperAdminUserID int64 `mapstructure:"super_admin_user_id"`
	ListLimit        int   `mapstructure:"list_limit"`
	Relay            struct {
		Email struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"email"`
		SMS struct {
			Enabled           bool   `mapstructure:"enabled"`
			PriorityThreshold string `mapstructure:"priority_threshold"`
		} `mapstructure:"sms"`
		AWS struct {
			Region string `mapstructure:"region"`
		} `mapstructure:"aws"`
	} `mapstructure:"relay"`
}

// RelayEnabled reports whether any out-of-band channel is switched on.
func (n NotificationConfig) RelayEnabled() bool {
	return n.Relay.Email.Enabled || n.Relay.SMS.Enabled
}

type RenewalsConfig struct {
	WindowDays int    `mapstructure:"window_days"`
	DedupeDays int    `mapstructure:"dedupe_days"`
	Schedule   string `mapstructure:"schedule"`
	LockTTL    int    `mapstructure:"lock_ttl"` // milliseconds
	Enabled    bool   `mapstructure:"enabled"`
}

type CacheConfig struct {
	ServiceTTL int `mapstructure:"service_ttl"` // milliseconds
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

type UploadsConfig struct {
	Dir          string   `mapstructure:"dir"`
	MaxBytes     int64    `mapstructure:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// SecurityConfig throttles repeated identity failures from one client address.
type SecurityConfig struct {
	MaxFailedLogins      int    `mapstructure:"max_failed_logins"`
	FailedLoginWindow    int    `mapstructure:"failed_login_window"` // seconds
	FailedLoginRetention int    `mapstructure:"failed_login_retention_days"`
	PurgeSchedule        string `mapstructure:"purge_schedule"`
}

// GetDuration converts a millisecond setting.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
