package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Backend names accepted by PATIENT_BACKEND
const (
	BackendMemory    = "memory"
	BackendCouchbase = "couchbase"
	BackendFHIR      = "fhir"
)

// Config holds the runtime settings of the web and ingest binaries
type Config struct {
	Port             string
	LogLevel         string
	ElasticsearchURL string
	LogIndex         string

	Backend           string
	CouchbaseURL      string
	CouchbaseUsername string
	CouchbasePassword string
	CouchbaseBucket   string
	FHIRBaseURL       string
	FHIRTimeout       time.Duration

	MockLatency        time.Duration
	SeedDemoPatients   bool
	SessionIdleTimeout time.Duration
	RefreshInterval    time.Duration

	BusinessMetrics       bool
	SystemMetrics         bool
	SystemMetricsInterval time.Duration
}

// LoadDotEnv loads a .env file from the parent directory or the current one.
// A missing file is not an error: the environment may already be set.
func LoadDotEnv() {
	if err := godotenv.Load("../.env"); err == nil {
		return
	}
	log.Debug().Msg("Not found .env file in parent directory, trying current directory")
	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Msg("Not found .env file in current directory, assuming environment variables are set")
	}
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var err error
	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		ElasticsearchURL:  os.Getenv("ELASTICSEARCH_URL"),
		LogIndex:          getEnvOrDefault("LOG_INDEX", "logs"),
		Backend:           strings.ToLower(getEnvOrDefault("PATIENT_BACKEND", BackendMemory)),
		CouchbaseURL:      getEnvOrDefault("COUCHBASE_URL", "couchbase://localhost"),
		CouchbaseUsername: getEnvOrDefault("COUCHBASE_USERNAME", "patientrecords_user"),
		CouchbasePassword: getEnvOrDefault("COUCHBASE_PASSWORD", "password"),
		CouchbaseBucket:   getEnvOrDefault("COUCHBASE_BUCKET", "patientrecords"),
		FHIRBaseURL:       getEnvOrDefault("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4"),
	}

	if cfg.FHIRTimeout, err = durationEnv("FHIR_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MockLatency, err = durationEnv("MOCK_LATENCY", 300*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = durationEnv("REFRESH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SystemMetricsInterval, err = durationEnv("SYSTEM_METRICS_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.SeedDemoPatients, err = boolEnv("SEED_DEMO_PATIENTS", true); err != nil {
		return nil, err
	}
	if cfg.BusinessMetrics, err = boolEnv("ENABLE_BUSINESS_METRICS", false); err != nil {
		return nil, err
	}
	if cfg.SystemMetrics, err = boolEnv("ENABLE_SYSTEM_METRICS", false); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory, BackendCouchbase, BackendFHIR:
	default:
		return nil, fmt.Errorf("unsupported PATIENT_BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}

// getEnvOrDefault retrieves an environment variable with a fallback default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func boolEnv(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}
