package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every environment variable override
const EnvPrefix = "INTEL"

// Storage backends
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Cache backends
const (
	CacheNone  = "none"
	CacheLRU   = "lru"
	CacheRedis = "redis"
)

// DataPaths holds data directory and file path configuration
type DataPaths struct {
	// DataDir is the base data directory (INTEL_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file (INTEL_SQLITE_PATH, default: ${DataDir}/indicators.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LogConfig controls the process logger. Level is reloaded when the config
// file changes.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StorageConfig selects the indicator store
type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MongoDBConfig configures the MongoDB backend
type MongoDBConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
}

// RedisConfig configures the shared indicator cache
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig configures indicator detail caching
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	Size    int           `mapstructure:"size"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RateLimitConfig is the per-client token bucket
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	Burst             int `mapstructure:"burst"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Port           int             `mapstructure:"port"`
	TLS            bool            `mapstructure:"tls"`
	CertFile       string          `mapstructure:"cert_file"`
	KeyFile        string          `mapstructure:"key_file"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	TrustProxy     bool            `mapstructure:"trust_proxy"`
	MaxUploadSize  int64           `mapstructure:"max_upload_size"`
	ReadTimeout    time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// AuthConfig configures request authentication. With auth disabled every
// request runs as an anonymous admin.
type AuthConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTExpiry      time.Duration `mapstructure:"jwt_expiry"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Roles          []string      `mapstructure:"roles"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	HashedPassword string        `mapstructure:"-"`
}

// SecretsConfig selects where secrets are resolved from
type SecretsConfig struct {
	Provider string `mapstructure:"provider"`
	Vault    struct {
		Address string `mapstructure:"address"`
		Token   string `mapstructure:"token"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"vault"`
	AWS struct {
		Region    string `mapstructure:"region"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		SecretID  string `mapstructure:"secret_id"`
	} `mapstructure:"aws"`
}

// Config holds all configuration for the indicator service
type Config struct {
	Log       LogConfig     `mapstructure:"log"`
	DataPaths DataPaths     `mapstructure:"data_paths"`
	Storage   StorageConfig `mapstructure:"storage"`
	MongoDB   MongoDBConfig `mapstructure:"mongodb"`
	Cache     CacheConfig   `mapstructure:"cache"`
	API       APIConfig     `mapstructure:"api"`
	Auth      AuthConfig    `mapstructure:"auth"`
	Secrets   SecretsConfig `mapstructure:"secrets"`
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)

	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	viper.SetDefault("storage.backend", BackendSQLite)
	viper.SetDefault("storage.timeout", 5*time.Second)

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "crits")
	viper.SetDefault("mongodb.max_pool_size", 10)

	viper.SetDefault("cache.backend", CacheLRU)
	viper.SetDefault("cache.size", 1024)
	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.pool_size", 10)

	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.tls", false)
	viper.SetDefault("api.cert_file", "server.crt")
	viper.SetDefault("api.key_file", "server.key")
	viper.SetDefault("api.allowed_origins", []string{"http://localhost:8080"})
	viper.SetDefault("api.trust_proxy", false)
	viper.SetDefault("api.max_upload_size", 16<<20)
	viper.SetDefault("api.read_timeout", 30*time.Second)
	viper.SetDefault("api.write_timeout", 60*time.Second)
	viper.SetDefault("api.rate_limit.requests_per_second", 50)
	viper.SetDefault("api.rate_limit.burst", 100)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwt_expiry", 24*time.Hour)
	viper.SetDefault("auth.roles", []string{"admin"})
	viper.SetDefault("auth.bcrypt_cost", 10)

	viper.SetDefault("secrets.provider", "env")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Shorter names for the settings most often overridden
	_ = viper.BindEnv("data_paths.data_dir", EnvPrefix+"_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", EnvPrefix+"_SQLITE_PATH")
	_ = viper.BindEnv("log.level", EnvPrefix+"_LOG_LEVEL")
}

// validateAndHash validates the JWT secret and hashes the login password
func validateAndHash(config *Config) error {
	if config.Auth.Enabled && config.Auth.JWTSecret != "" {
		if len(config.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters (256 bits) for security")
		}
		weakSecrets := []string{
			"secret", "password", "changeme", "default", "admin",
			"jwt_secret", "supersecret", "mysecret", "test", "example",
		}
		lowerSecret := strings.ToLower(config.Auth.JWTSecret)
		for _, weak := range weakSecrets {
			if strings.Contains(lowerSecret, weak) {
				return fmt.Errorf("JWT secret appears to contain weak/default value: please use a cryptographically secure random string")
			}
		}
	}

	if config.Auth.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(config.Auth.Password), config.Auth.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		config.Auth.HashedPassword = string(hashed)
		config.Auth.Password = "" // clear plain password
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from file and environment variables. An
// empty configFile searches for config.yaml in . and ./config.
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: defaults and env vars only
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	if err := validateAndHash(&config); err != nil {
		return nil, err
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ResolveDataPaths derives unset paths from DataDir
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}
	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "indicators.db")
	} else if c.DataPaths.SQLitePath != ":memory:" && !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}
	c.DataPaths.DataDir = dataDir
}

// GetSQLitePath returns the resolved SQLite database path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		dataDir := c.DataPaths.DataDir
		if dataDir == "" {
			dataDir = "./data"
		}
		return filepath.Join(dataDir, "indicators.db")
	}
	return c.DataPaths.SQLitePath
}

// validateConfig validates the configuration for security and correctness
func validateConfig(config *Config) error {
	if _, err := zapcore.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", config.Log.Level)
	}

	switch config.Storage.Backend {
	case BackendSQLite:
	case BackendMongoDB:
		if !strings.HasPrefix(config.MongoDB.URI, "mongodb://") && !strings.HasPrefix(config.MongoDB.URI, "mongodb+srv://") {
			return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
		}
		parsed, err := url.Parse(config.MongoDB.URI)
		if err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("invalid MongoDB URI: missing host")
		}
		if config.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database name is required")
		}
	default:
		return fmt.Errorf("invalid storage backend %q: must be %s or %s", config.Storage.Backend, BackendSQLite, BackendMongoDB)
	}
	if config.Storage.Timeout <= 0 {
		return fmt.Errorf("storage timeout must be positive")
	}

	switch config.Cache.Backend {
	case CacheNone:
	case CacheLRU, CacheRedis:
		if config.Cache.Size <= 0 && config.Cache.Backend == CacheLRU {
			return fmt.Errorf("cache size must be positive")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
		if config.Cache.Backend == CacheRedis && config.Cache.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis cache")
		}
	default:
		return fmt.Errorf("invalid cache backend %q", config.Cache.Backend)
	}

	// Port 0 lets the OS pick a free port
	if config.API.Port < 0 || config.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", config.API.Port)
	}
	if config.API.TLS && (config.API.CertFile == "" || config.API.KeyFile == "") {
		return fmt.Errorf("TLS requires cert_file and key_file")
	}
	if config.API.RateLimit.RequestsPerSecond <= 0 || config.API.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit requests_per_second and burst must be positive")
	}
	if config.API.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	if config.Auth.Enabled {
		if config.Auth.JWTSecret == "" {
			return fmt.Errorf("auth is enabled but no JWT secret is configured")
		}
		if config.Auth.JWTExpiry <= 0 {
			return fmt.Errorf("JWT expiry must be positive")
		}
	}
	return nil
}
