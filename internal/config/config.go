package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the pipeline needs from the environment.
type Config struct {
	AppEnv string

	// Postgres
	PGHost     string
	PGPort     string
	PGUser     string
	PGPassword string
	PGDatabase string

	// Dedup cache backend: "memory" (run-scoped) or "redis" (cross-run)
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Blob store
	BlobUploadBase string
	BlobPublicBase string
	PlaceholderURL string

	// Asset relocation
	Workers         int
	DownloadsPerSec int

	// Metrics endpoint served for the duration of the run
	MetricsAddr string
}

// Load reads .env if present and resolves the full config from the
// environment with development defaults.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		PGHost:     getEnv("PG_HOST", "localhost"),
		PGPort:     getEnv("PG_PORT", "5432"),
		PGUser:     getEnv("PG_USER", "postgres"),
		PGPassword: getEnv("PG_PASSWORD", ""),
		PGDatabase: getEnv("PG_DB", "travel_guides"),

		CacheBackend:  getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		BlobUploadBase: getEnv("BLOB_UPLOAD_BASE", "http://localhost:9000/app-images"),
		BlobPublicBase: getEnv("BLOB_PUBLIC_BASE", "http://localhost:9000/app-images"),
		// Lives under the public base so re-runs treat it as already
		// relocated rather than a source to fetch
		PlaceholderURL: getEnv("PLACEHOLDER_IMAGE_URL", getEnv("BLOB_PUBLIC_BASE", "http://localhost:9000/app-images")+"/placeholder.png"),

		Workers:         getEnvInt("MIGRATE_WORKERS", 6),
		DownloadsPerSec: getEnvInt("MIGRATE_DOWNLOADS_PER_SEC", 10),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}
}

// DSN builds the Postgres connection string
func (c *Config) DSN() string {
	return "postgres://" + c.PGUser + ":" + c.PGPassword + "@" + c.PGHost + ":" + c.PGPort + "/" + c.PGDatabase + "?sslmode=disable"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
