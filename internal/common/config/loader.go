package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("Loaded .env from: %s\n", path)
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pwd-access"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.TimeZone == "" {
		cfg.Database.Postgres.TimeZone = "Asia/Manila"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Applications.ReferencePrefix == "" {
		cfg.Applications.ReferencePrefix = "APP"
	}
	if cfg.Applications.ReferenceMaxAttempts == 0 {
		cfg.Applications.ReferenceMaxAttempts = 5
	}
	if cfg.Applications.DefaultPageSize == 0 {
		cfg.Applications.DefaultPageSize = 20
	}
	if cfg.Applications.MaxPageSize == 0 {
		cfg.Applications.MaxPageSize = 50
	}
	if cfg.Applications.DueSoonDays == 0 {
		cfg.Applications.DueSoonDays = 3
	}

	if cfg.Notifications.SuperAdminUserID == 0 {
		cfg.Notifications.SuperAdminUserID = 1
	}
	if cfg.Notifications.ListLimit == 0 {
		cfg.Notifications.ListLimit = 50
	}
	if cfg.Notifications.Relay.SMS.PriorityThreshold == "" {
		cfg.Notifications.Relay.SMS.PriorityThreshold = "high"
	}
	if cfg.Notifications.Relay.AWS.Region == "" {
		cfg.Notifications.Relay.AWS.Region = "ap-southeast-1"
	}

	if cfg.Renewals.WindowDays == 0 {
		cfg.Renewals.WindowDays = 30
	}
	if cfg.Renewals.DedupeDays == 0 {
		cfg.Renewals.DedupeDays = 7
	}
	if cfg.Renewals.Schedule == "" {
		cfg.Renewals.Schedule = "0 6 * * *"
	}
	if cfg.Renewals.LockTTL == 0 {
		cfg.Renewals.LockTTL = 300000
	}

	if cfg.Cache.ServiceTTL == 0 {
		cfg.Cache.ServiceTTL = 600000
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}

	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "./uploads"
	}
	if cfg.Uploads.MaxBytes == 0 {
		cfg.Uploads.MaxBytes = 10 << 20
	}
	if len(cfg.Uploads.AllowedTypes) == 0 {
		cfg.Uploads.AllowedTypes = []string{"jpg", "jpeg", "png", "pdf", "doc", "docx"}
	}

	if cfg.Security.MaxFailedLogins == 0 {
		cfg.Security.MaxFailedLogins = 5
	}
	if cfg.Security.FailedLoginWindow == 0 {
		cfg.Security.FailedLoginWindow = 900
	}
	if cfg.Security.FailedLoginRetention == 0 {
		cfg.Security.FailedLoginRetention = 30
	}
	if cfg.Security.PurgeSchedule == "" {
		cfg.Security.PurgeSchedule = "30 3 * * *"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Renewals.WindowDays < 0 || cfg.Renewals.DedupeDays < 0 {
		return fmt.Errorf("renewals window_days and dedupe_days must not be negative")
	}

	if cfg.Notifications.Relay.Email.Enabled && cfg.Notifications.Relay.Email.FromEmail == "" {
		return fmt.Errorf("notifications.relay.email.from_email is required when email relay is enabled")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required when tracing is enabled")
	}

	return nil
}
