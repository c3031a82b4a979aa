package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	APIPrefix string
	GinMode   string

	Database DatabaseConfig
	Blob     BlobConfig
	Photo    PhotoConfig
	Auth     AuthConfig
	Log      LogConfig

	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Driver is "mongo" or "memory".
	Driver string
	URI    string
	Name   string
}

type BlobConfig struct {
	// Driver is one of "gcs", "r2", "local" or "memory".
	Driver string
	Dir    string

	GCSBucket       string
	CredentialsFile string

	R2Bucket    string
	R2AccessKey string
	R2SecretKey string
	R2Endpoint  string
}

type PhotoConfig struct {
	Required bool
	MaxBytes int64
}

type AuthConfig struct {
	JWTSecret     string
	AccessTTL     time.Duration
	AdminEmail    string
	AdminPassword string
}

type LogConfig struct {
	// Mode is "production" or "development".
	Mode     string
	Filename string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	maxKB, err := strconv.Atoi(get("MAX_PHOTO_SIZE_KB", "1024"))
	if err != nil || maxKB <= 0 {
		return nil, fmt.Errorf("invalid MAX_PHOTO_SIZE_KB %q", get("MAX_PHOTO_SIZE_KB", ""))
	}
	photoRequired, err := strconv.ParseBool(get("PHOTO_REQUIRED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHOTO_REQUIRED: %w", err)
	}
	ttlMinutes, _ := strconv.Atoi(get("ACCESS_TOKEN_TTL_MINUTES", "15"))
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}

	cfg := &Config{
		Port:      get("PORT", "8080"),
		APIPrefix: get("API_PREFIX", "/api/v1"),
		GinMode:   get("GIN_MODE", "release"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(get("DB_DRIVER", "mongo")),
			URI:    get("MONGODB_URI", ""),
			Name:   get("DATABASE_NAME", "cloudstore"),
		},
		Blob: BlobConfig{
			Driver:          strings.ToLower(get("BLOB_DRIVER", "local")),
			Dir:             get("BLOB_DIR", "uploads"),
			GCSBucket:       get("GCS_BUCKET", ""),
			CredentialsFile: get("CREDENTIALS_FILE_LOCATION", ""),
			R2Bucket:        get("R2_BUCKET", ""),
			R2AccessKey:     get("R2_ACCESS_KEY_ID", ""),
			R2SecretKey:     get("R2_SECRET_ACCESS_KEY", ""),
			R2Endpoint:      get("R2_ENDPOINT", ""),
		},
		Photo: PhotoConfig{
			Required: photoRequired,
			MaxBytes: int64(maxKB) << 10,
		},
		Auth: AuthConfig{
			JWTSecret:     get("JWT_SECRET", ""),
			AccessTTL:     time.Duration(ttlMinutes) * time.Minute,
			AdminEmail:    strings.ToLower(get("ADMIN_EMAIL", "")),
			AdminPassword: get("ADMIN_PASSWORD", ""),
		},
		Log: LogConfig{
			Mode:     get("LOG_MODE", "production"),
			Filename: get("LOG_FILE", ""),
		},
	}

	for _, origin := range strings.Split(get("ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mongo":
		if c.Database.URI == "" {
			return fmt.Errorf("missing MONGODB_URI")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Blob.Driver {
	case "gcs":
		if c.Blob.GCSBucket == "" {
			return fmt.Errorf("missing GCS_BUCKET")
		}
	case "r2":
		if c.Blob.R2Bucket == "" || c.Blob.R2AccessKey == "" || c.Blob.R2SecretKey == "" || c.Blob.R2Endpoint == "" {
			return fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
		}
	case "local", "memory":
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	return nil
}
