package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newTestConfig returns a valid Config for testing
func newTestConfig() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Backend: BackendSQLite, Timeout: 5 * time.Second},
		MongoDB: MongoDBConfig{URI: "mongodb://localhost:27017", Database: "crits", MaxPoolSize: 10},
		Cache:   CacheConfig{Backend: CacheLRU, Size: 16, TTL: time.Minute},
		API: APIConfig{
			Port:          8080,
			MaxUploadSize: 1 << 20,
			RateLimit:     RateLimitConfig{RequestsPerSecond: 10, Burst: 10},
		},
		Auth: AuthConfig{JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost},
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, CacheLRU, cfg.Cache.Backend)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, []string{"admin"}, cfg.Auth.Roles)
	assert.Equal(t, filepath.Join("./data", "indicators.db"), cfg.GetSQLitePath())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, `
log:
  level: debug
storage:
  backend: mongodb
mongodb:
  uri: mongodb://db.internal:27017
  database: intel
cache:
  backend: redis
  redis:
    addr: cache.internal:6379
api:
  port: 9000
`)
	t.Setenv("INTEL_API_PORT", "9443")
	t.Setenv("INTEL_SQLITE_PATH", "/var/lib/intel/ind.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendMongoDB, cfg.Storage.Backend)
	assert.Equal(t, "intel", cfg.MongoDB.Database)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 9443, cfg.API.Port, "environment overrides the file")
	assert.Equal(t, "/var/lib/intel/ind.db", cfg.GetSQLitePath())
}

func TestLoadConfig_MongoURIFromSecret(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := writeConfigFile(t, "storage:\n  backend: mongodb\n")
	t.Setenv("INTEL_MONGODB_URI", "mongodb://secret-host:27017")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://secret-host:27017", cfg.MongoDB.URI)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("explicit file missing", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid backend", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		_, err := LoadConfig(writeConfigFile(t, "storage:\n  backend: postgres\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid storage backend")
	})

	t.Run("auth without secret", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		_, err := LoadConfig(writeConfigFile(t, "auth:\n  enabled: true\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret")
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "mongo uri scheme", mutate: func(c *Config) {
			c.Storage.Backend = BackendMongoDB
			c.MongoDB.URI = "http://localhost"
		}, wantErr: "MongoDB URI"},
		{name: "mongo missing database", mutate: func(c *Config) {
			c.Storage.Backend = BackendMongoDB
			c.MongoDB.Database = ""
		}, wantErr: "database name"},
		{name: "zero timeout", mutate: func(c *Config) { c.Storage.Timeout = 0 }, wantErr: "timeout"},
		{name: "unknown cache", mutate: func(c *Config) { c.Cache.Backend = "memcached" }, wantErr: "cache backend"},
		{name: "lru without size", mutate: func(c *Config) { c.Cache.Size = 0 }, wantErr: "cache size"},
		{name: "redis without addr", mutate: func(c *Config) { c.Cache.Backend = CacheRedis }, wantErr: "redis address"},
		{name: "no cache needs nothing", mutate: func(c *Config) {
			c.Cache = CacheConfig{Backend: CacheNone}
		}},
		{name: "port out of range", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: "API port"},
		{name: "negative port", mutate: func(c *Config) { c.API.Port = -1 }, wantErr: "API port"},
		{name: "port zero is OS assigned", mutate: func(c *Config) { c.API.Port = 0 }},
		{name: "tls without cert", mutate: func(c *Config) { c.API.TLS = true }, wantErr: "TLS"},
		{name: "rate limit zero", mutate: func(c *Config) { c.API.RateLimit.Burst = 0 }, wantErr: "rate limit"},
		{name: "auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }, wantErr: "JWT secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAndHash(t *testing.T) {
	t.Run("hashes and clears the password", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Auth.Password = "hunter2hunter2"
		require.NoError(t, validateAndHash(&cfg))
		assert.Empty(t, cfg.Auth.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cfg.Auth.HashedPassword), []byte("hunter2hunter2")))
	})

	t.Run("rejects short secrets", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = "short"
		assert.Error(t, validateAndHash(&cfg))
	})

	t.Run("rejects weak secrets", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = "changeme-changeme-changeme-changeme"
		err := validateAndHash(&cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weak")
	})

	t.Run("accepts strong secrets", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = "q8Zr4vN2xLp7Kw1Yb6Hs3Tj9Fm5Gd0Ce"
		assert.NoError(t, validateAndHash(&cfg))
	})
}
