package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Images    ImagesConfig
	S3        S3Config
	Redis     RedisConfig
	Mongo     MongoConfig
	RateLimit RateLimitConfig
	Snapshot  SnapshotConfig
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Port        int
	FrontendDir string // built SPA to serve, optional
}

type DatabaseConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieSecure  bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type ImagesConfig struct {
	Backend string // local or s3
	Dir     string
	BaseURL string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type RedisConfig struct {
	URL string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RateLimitConfig struct {
	AuthRPS   float64
	AuthBurst int
}

type SnapshotConfig struct {
	Schedule string
}

type CatalogConfig struct {
	CacheSize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./tcg_exchange.db")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("images.backend", "local")
	v.SetDefault("images.dir", "./data/images")
	v.SetDefault("images.base_url", "/images/uploads")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("mongo.database", "tcg_exchange")
	v.SetDefault("ratelimit.auth_rps", 1.0)
	v.SetDefault("ratelimit.auth_burst", 5)
	v.SetDefault("snapshot.schedule", "0 23 * * *")
	v.SetDefault("catalog.cache_size", 1024)
}

// Load reads config.yaml from the working directory if present, then lets
// environment variables override any key (DATABASE_DSN for database.dsn).
// A .env file is loaded into the environment first when it exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(replacer())
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

// replacer maps nested keys to environment names: database.dsn -> DATABASE_DSN.
func replacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetInt("server.port"),
			FrontendDir: v.GetString("server.frontend_dir"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
		Auth: AuthConfig{
			AccessSecret:  v.GetString("auth.access_secret"),
			RefreshSecret: v.GetString("auth.refresh_secret"),
			AccessTTL:     v.GetDuration("auth.access_ttl"),
			RefreshTTL:    v.GetDuration("auth.refresh_ttl"),
			CookieSecure:  v.GetBool("auth.cookie_secure"),
		},
		CORS: CORSConfig{AllowedOrigins: splitList(v.GetString("cors.allowed_origins"))},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Images: ImagesConfig{
			Backend: strings.ToLower(v.GetString("images.backend")),
			Dir:     v.GetString("images.dir"),
			BaseURL: strings.TrimRight(v.GetString("images.base_url"), "/"),
		},
		S3: S3Config{
			Bucket:    v.GetString("s3.bucket"),
			Region:    v.GetString("s3.region"),
			Endpoint:  v.GetString("s3.endpoint"),
			AccessKey: v.GetString("s3.access_key"),
			SecretKey: v.GetString("s3.secret_key"),
		},
		Redis: RedisConfig{URL: v.GetString("redis.url")},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   v.GetFloat64("ratelimit.auth_rps"),
			AuthBurst: v.GetInt("ratelimit.auth_burst"),
		},
		Snapshot: SnapshotConfig{Schedule: v.GetString("snapshot.schedule")},
		Catalog:  CatalogConfig{CacheSize: v.GetInt("catalog.cache_size")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("auth.access_secret and auth.refresh_secret are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("auth.access_secret and auth.refresh_secret must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("auth token lifetimes must be positive")
	}
	switch c.Images.Backend {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket is required when images.backend is s3")
		}
	default:
		return fmt.Errorf("unsupported images.backend %q", c.Images.Backend)
	}
	if c.Catalog.CacheSize <= 0 {
		c.Catalog.CacheSize = 1024
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
