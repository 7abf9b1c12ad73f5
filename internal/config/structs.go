package config

type Config struct {
	// App: Global application metadata
	App InConfigAppConfig `mapstructure:"app"`

	// Server: Network configuration and execution environment
	Server ServerConfig `mapstructure:"server"`

	// Database: Per-user embedded SQLite store parameters
	Database DatabaseConfig `mapstructure:"database"`

	// Storage: Object storage backend for photo bytes and remote DB copies
	Storage StorageConfig `mapstructure:"storage"`

	// Sync: Backup/restore behavior for the per-user metadata stores
	Sync SyncConfig `mapstructure:"sync"`

	// Upload: Batch upload constraints
	Upload UploadConfig `mapstructure:"upload"`

	// Cache: In-memory cache settings for read endpoints
	Cache CacheConfig `mapstructure:"cache"`

	// Security: CORS whitelist and rate limiting
	Security SecurityConfig `mapstructure:"security"`

	// BaseURL: The public-facing root URL used for absolute link generation
	BaseURL string `mapstructure:"base_url"`
}

type InConfigAppConfig struct {
	// Name: Identity of the service used in headers and logs (e.g., "Photovault")
	Name string `mapstructure:"name"`

	// Version: Application semantic version (e.g., "0.1.0")
	Version string `mapstructure:"version"`

	StartMessage bool `mapstructure:"start_message"`
}

type ServerConfig struct {
	// Port: The TCP port the HTTP server will bind to (default: 9480)
	Port int `mapstructure:"port"`

	// Env: Execution context (development, staging, production)
	Env string `mapstructure:"env"`
}

type DatabaseConfig struct {
	// Dir: Directory holding one SQLite file per user (e.g., ./data/meta)
	Dir string `mapstructure:"dir"`
}

type StorageConfig struct {
	// Driver: "s3" or "filesystem"
	Driver string `mapstructure:"driver"`

	// Dir: Root directory for the filesystem driver (e.g., ./data/objects)
	Dir string `mapstructure:"dir"`

	// S3: Credentials and location for the s3 driver
	S3 S3Config `mapstructure:"s3"`
}

type S3Config struct {
	// Endpoint: Custom endpoint URL, empty for stock AWS
	Endpoint string `mapstructure:"endpoint"`

	// Region: Bucket region (e.g., "us-east-1")
	Region string `mapstructure:"region"`

	// Bucket: Bucket holding photo bytes and metadata DB copies
	Bucket string `mapstructure:"bucket"`

	// AccessKey / SecretKey: Static credentials
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type SyncConfig struct {
	// Enabled: Global toggle for remote backup/restore
	Enabled bool `mapstructure:"enabled"`

	// RemotePrefix: Key prefix for per-user DB copies (e.g., "metadata")
	RemotePrefix string `mapstructure:"remote_prefix"`

	// MaxRetries: Attempts per backup before giving up until the next trigger
	MaxRetries int `mapstructure:"max_retries"`

	// RetryBaseDelay / RetryMaxDelay: Backoff bounds between attempts (e.g., "500ms", "30s")
	RetryBaseDelay string `mapstructure:"retry_base_delay"`
	RetryMaxDelay  string `mapstructure:"retry_max_delay"`

	// AttemptTimeout: Per-attempt upload/download deadline (e.g., "60s")
	AttemptTimeout string `mapstructure:"attempt_timeout"`
}

type UploadConfig struct {
	// MaxFileSize: Maximum size of a single file in a batch (e.g., "25MB")
	MaxFileSize string `mapstructure:"max_file_size"`

	// MaxBatchFiles: Maximum number of files per batch
	MaxBatchFiles int `mapstructure:"max_batch_files"`

	// CommitParallelism: Concurrent item writes during a batch commit
	CommitParallelism int `mapstructure:"commit_parallelism"`

	// StorageTimeout: Per-item object storage write deadline (e.g., "30s")
	StorageTimeout string `mapstructure:"storage_timeout"`
}

type CacheConfig struct {
	// Enabled: Toggles the in-memory response caching layer
	Enabled bool `mapstructure:"enabled"`

	// MaxCapacity: Maximum RAM allocated for cache in MB (e.g., 50)
	MaxCapacity int `mapstructure:"max_capacity"`

	// TTL: Expiration time for cached items (e.g., "5m")
	TTL string `mapstructure:"ttl"`
}

type SecurityConfig struct {
	// CorsOrigins: List of allowed domains for browser-based cross-origin requests
	CorsOrigins []string `mapstructure:"cors_origins"`

	// RateLimit: Token-bucket request throttling
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	// Enabled: Global toggle for the rate limiting middleware
	Enabled bool `mapstructure:"enabled"`

	// Requests: Number of allowed requests per time window
	Requests int `mapstructure:"requests"`

	// Window: The timeframe for the request limit (e.g., "1s", "1m")
	Window string `mapstructure:"window"`

	// Burst: Temporary allowed spike capacity above the steady-rate limit
	Burst int `mapstructure:"burst"`
}
