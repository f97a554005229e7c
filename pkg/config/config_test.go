package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test?mode=memory")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CACHE_TTL", "5s")
	t.Setenv("CACHE_DISABLED", "true")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.CacheDisabled)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.MaxUploadMB)
	assert.Equal(t, "yatube", cfg.MongoDatabase)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v := viper.New()
		v.Set("DATABASE_URL", "postgres://localhost/yatube")
		v.Set("DB_DRIVER", "postgres")
		v.Set("JWT_SECRET", defaultJWTSecret)
		v.Set("AUTH_RATE_PER_MINUTE", 20)
		v.Set("ENV", "development")
		return fromViper(v)
	}

	require.NoError(t, base().Validate(), "default secret is fine outside production")

	cfg := base()
	cfg.Env = "production"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = base()
	cfg.DatabaseURL = ""
	cfg.DBDriver = "mysql"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "DB_DRIVER")

	cfg = base()
	cfg.AuthRatePerMinute = 0
	assert.ErrorContains(t, cfg.Validate(), "AUTH_RATE_PER_MINUTE")
}
