package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "supersecretjwtkey"

type Config struct {
	Port string
	Env  string

	DBDriver    string
	DatabaseURL string

	MongoURI      string
	MongoDatabase string

	RedisURL      string
	CacheTTL      time.Duration
	CacheSize     int
	CacheDisabled bool

	MediaRoot   string
	MaxUploadMB int

	JWTSecret  string
	SessionTTL time.Duration

	FirebaseCredentialsPath string

	LogLevel          string
	AuthRatePerMinute int
}

// Load reads configuration from an optional .env file and the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "yatube")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "20s")
	v.SetDefault("CACHE_SIZE", 512)
	v.SetDefault("CACHE_DISABLED", false)
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("SESSION_TTL", "72h")
	v.SetDefault("FIREBASE_CREDENTIALS_PATH", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_RATE_PER_MINUTE", 20)

	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:                    v.GetString("PORT"),
		Env:                     v.GetString("ENV"),
		DBDriver:                strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		MongoURI:                v.GetString("MONGO_URI"),
		MongoDatabase:           v.GetString("MONGO_DATABASE"),
		RedisURL:                v.GetString("REDIS_URL"),
		CacheTTL:                v.GetDuration("CACHE_TTL"),
		CacheSize:               v.GetInt("CACHE_SIZE"),
		CacheDisabled:           v.GetBool("CACHE_DISABLED"),
		MediaRoot:               v.GetString("MEDIA_ROOT"),
		MaxUploadMB:             v.GetInt("MAX_UPLOAD_MB"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		SessionTTL:              v.GetDuration("SESSION_TTL"),
		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		AuthRatePerMinute:       v.GetInt("AUTH_RATE_PER_MINUTE"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the server must not start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, errors.New("DB_DRIVER must be postgres or sqlite"))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.AuthRatePerMinute <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}
