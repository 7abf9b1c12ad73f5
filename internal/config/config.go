package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"photovault/pkg/logger"
)

var AppConfig *Config

func (c *Config) GetBaseUrl() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}

func Load() {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PHOTOVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.dir", "PHOTOVAULT_DATABASE_DIR")
	v.BindEnv("storage.s3.access_key", "PHOTOVAULT_S3_ACCESS_KEY")
	v.BindEnv("storage.s3.secret_key", "PHOTOVAULT_S3_SECRET_KEY")
	v.BindEnv("storage.s3.bucket", "PHOTOVAULT_S3_BUCKET")
	v.BindEnv("storage.s3.endpoint", "PHOTOVAULT_S3_ENDPOINT")
	v.BindEnv("server.port", "APP_PORT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.LogInfo("Config file not found. Using Environment Variables and Defaults.")
		} else {
			logger.LogWarn("Config file found but unreadable: %v", err)
		}
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("[FATAL] Failed to parse configuration: %v", err)
	}

	AppConfig.BaseURL = AppConfig.GetBaseUrl()

	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("[FATAL] CONFIGURATION ERROR: %v", err)
	}

	logger.LogInfo("⚙️  %s v%s Initialized | Env: %s | Port: %d",
		AppConfig.App.Name,
		AppConfig.App.Version,
		AppConfig.Server.Env,
		AppConfig.Server.Port,
	)
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "Photovault")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.start_message", true)

	// Server
	v.SetDefault("server.port", 9480)
	v.SetDefault("server.env", "development")

	// Database
	v.SetDefault("database.dir", "./data/meta")

	// Storage
	v.SetDefault("storage.driver", "filesystem")
	v.SetDefault("storage.dir", "./data/objects")
	v.SetDefault("storage.s3.region", "us-east-1")

	// Sync
	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.remote_prefix", "metadata")
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.retry_base_delay", "500ms")
	v.SetDefault("sync.retry_max_delay", "30s")
	v.SetDefault("sync.attempt_timeout", "60s")

	// Upload
	v.SetDefault("upload.max_file_size", "25MB")
	v.SetDefault("upload.max_batch_files", 100)
	v.SetDefault("upload.commit_parallelism", 4)
	v.SetDefault("upload.storage_timeout", "30s")

	// Caching
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_capacity", 50) // 50 MB
	v.SetDefault("cache.ttl", "5m")

	// Security & Limits
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests", 20)
	v.SetDefault("security.rate_limit.window", "1s")
	v.SetDefault("security.rate_limit.burst", 50)
}

func (c *Config) Validate() error {
	if c.Database.Dir == "" {
		return fmt.Errorf("database.dir cannot be empty")
	}

	switch c.Storage.Driver {
	case "filesystem":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the filesystem driver")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
		if c.Storage.S3.AccessKey == "" || c.Storage.S3.SecretKey == "" {
			if c.Server.Env == "production" {
				return fmt.Errorf("storage.s3 credentials cannot be empty in production environment")
			}
			logger.LogWarn("S3 credentials are empty; relying on the ambient AWS credential chain.")
		}
	default:
		return fmt.Errorf("unknown storage.driver '%s' (expected 's3' or 'filesystem')", c.Storage.Driver)
	}

	for name, value := range map[string]string{
		"sync.retry_base_delay":      c.Sync.RetryBaseDelay,
		"sync.retry_max_delay":       c.Sync.RetryMaxDelay,
		"sync.attempt_timeout":       c.Sync.AttemptTimeout,
		"upload.storage_timeout":     c.Upload.StorageTimeout,
		"cache.ttl":                  c.Cache.TTL,
		"security.rate_limit.window": c.Security.RateLimit.Window,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format '%s': %v", name, value, err)
		}
	}

	if c.Upload.CommitParallelism < 1 {
		return fmt.Errorf("upload.commit_parallelism must be at least 1")
	}

	return nil
}

// Duration returns a parsed duration from a validated config string.
// Falls back to def when the value is missing or malformed.
func Duration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
