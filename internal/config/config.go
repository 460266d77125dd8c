package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Metadata backends.
const (
	MetadataSQLite   = "sqlite"
	MetadataBlob     = "blob"
	MetadataMemory   = "memory"
	MetadataMongo    = "mongo"
	MetadataPostgres = "postgres"
)

// Blob backends.
const (
	BlobLocal  = "local"
	BlobMinio  = "minio"
	BlobMemory = "memory"
)

const (
	minSessionTTL    = time.Hour
	maxSessionTTL    = 24 * time.Hour
	minSessionSecret = 16
)

// Config is read once at startup and treated as immutable afterwards.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	AdminUsername     string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`

	MetadataBackend string `env:"METADATA_BACKEND" envDefault:"sqlite"`
	DBPath          string `env:"DB_PATH" envDefault:"/data/sitegallery.db"`
	MongoURI        string `env:"MONGO_URI"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"sitegallery"`
	PostgresURL     string `env:"DATABASE_URL"`

	BlobBackend       string `env:"BLOB_BACKEND" envDefault:"local"`
	BlobLocalPath     string `env:"BLOB_LOCAL_PATH" envDefault:"/data/uploads"`
	MinioEndpoint     string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey    string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey    string `env:"MINIO_SECRET_KEY"`
	MinioBucket       string `env:"MINIO_BUCKET" envDefault:"images"`
	MinioUseSSL       bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	PublicBlobBaseURL string `env:"PUBLIC_BLOB_BASE_URL"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.MetadataBackend = strings.ToLower(strings.TrimSpace(cfg.MetadataBackend))
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))
	cfg.PublicBlobBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBlobBaseURL), "/")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.AdminUsername) == "" {
		return fmt.Errorf("ADMIN_USERNAME must not be empty")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if len(c.SessionSecret) < minSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecret)
	}
	if c.SessionTTL < minSessionTTL || c.SessionTTL > maxSessionTTL {
		return fmt.Errorf("SESSION_TTL must be between %s and %s", minSessionTTL, maxSessionTTL)
	}

	switch c.MetadataBackend {
	case MetadataSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required when METADATA_BACKEND=sqlite")
		}
	case MetadataMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when METADATA_BACKEND=mongo")
		}
	case MetadataPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("DATABASE_URL is required when METADATA_BACKEND=postgres")
		}
	case MetadataBlob, MetadataMemory:
	default:
		return fmt.Errorf("unknown METADATA_BACKEND %q", c.MetadataBackend)
	}

	switch c.BlobBackend {
	case BlobLocal:
		if c.BlobLocalPath == "" {
			return fmt.Errorf("BLOB_LOCAL_PATH is required when BLOB_BACKEND=local")
		}
	case BlobMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when BLOB_BACKEND=minio")
		}
	case BlobMemory:
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	return nil
}
