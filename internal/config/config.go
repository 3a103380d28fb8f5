// Package config loads the process configuration from environment variables
// once at startup. The resulting struct is passed down through constructors;
// nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPAddr    string
	Store       StoreConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	Engine      EngineConfig
	Worker      WorkerConfig
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "postgres" or "memory".
	Backend string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type StorageConfig struct {
	// Backend is "local", "gcs" or "minio".
	Backend        string
	LocalRoot      string
	GCSBucket      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type EngineConfig struct {
	// Backend is "tesseract" or "vertex".
	Backend         string
	Languages       []string
	Timeout         time.Duration
	VertexProjectID string
	VertexRegion    string
	VertexModel     string
}

type WorkerConfig struct {
	PoolSize   int
	QueueSize  int
	MaxRetries int
	BaseDelay  time.Duration
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "postgres"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "ocrflow"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			LocalRoot:      getEnv("STORAGE_LOCAL_ROOT", "data/documents"),
			GCSBucket:      getEnv("STORAGE_GCS_BUCKET", ""),
			MinioEndpoint:  getEnv("STORAGE_MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("STORAGE_MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("STORAGE_MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("STORAGE_MINIO_BUCKET", "ocrflow"),
			MinioUseSSL:    getEnvBool("STORAGE_MINIO_USE_SSL", false),
		},
		Engine: EngineConfig{
			Backend:         getEnv("ENGINE_BACKEND", "tesseract"),
			Languages:       splitNonEmpty(getEnv("ENGINE_LANGUAGES", "")),
			Timeout:         getEnvDuration("ENGINE_TIMEOUT", 0),
			VertexProjectID: getEnv("VERTEX_PROJECT_ID", ""),
			VertexRegion:    getEnv("VERTEX_REGION", "us-central1"),
			VertexModel:     getEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		},
		Worker: WorkerConfig{
			PoolSize:   getEnvInt("WORKER_POOL_SIZE", 4),
			QueueSize:  getEnvInt("WORKER_QUEUE_SIZE", 256),
			MaxRetries: getEnvInt("WORKER_MAX_RETRIES", 3),
			BaseDelay:  getEnvDuration("WORKER_BASE_DELAY", time.Minute),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.Store.Backend)
	}
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("STORAGE_GCS_BUCKET must be set for the gcs backend")
		}
	case "minio":
		if c.Storage.MinioAccessKey == "" || c.Storage.MinioSecretKey == "" {
			return fmt.Errorf("STORAGE_MINIO_ACCESS_KEY and STORAGE_MINIO_SECRET_KEY must be set for the minio backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local, gcs or minio, got %q", c.Storage.Backend)
	}
	switch c.Engine.Backend {
	case "tesseract":
	case "vertex":
		if c.Engine.VertexProjectID == "" {
			return fmt.Errorf("VERTEX_PROJECT_ID must be set for the vertex engine")
		}
	default:
		return fmt.Errorf("ENGINE_BACKEND must be tesseract or vertex, got %q", c.Engine.Backend)
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("WORKER_MAX_RETRIES cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
