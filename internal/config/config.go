package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the gateway settings read from the environment.
type Config struct {
	HTTPAddr        string
	FhirVersion     string
	RequiredRole    string
	PermissionsFile string

	// MaxProviderWaitTime is the per-provider query budget. Zero or
	// negative disables the per-call timeout entirely.
	MaxProviderWaitTime time.Duration

	// RelationshipRetention controls how long expired patient-organisation
	// relationships are kept before the cleanup job removes them.
	RelationshipRetention time.Duration
}

// Load reads configuration from the environment. A .env file is loaded
// first when present so local development matches deployed behaviour.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		FhirVersion:           getEnv("FHIR_VERSION", "R4"),
		RequiredRole:          getEnv("REQUIRED_ROLE", "GATEWAY_CONSUMER"),
		PermissionsFile:       getEnv("PERMISSIONS_FILE", "permissions.yml"),
		MaxProviderWaitTime:   time.Duration(getEnvInt("MAX_PROVIDER_WAIT_TIME_MS", 30000)) * time.Millisecond,
		RelationshipRetention: time.Duration(getEnvInt("RELATIONSHIP_RETENTION_DAYS", 365)) * 24 * time.Hour,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
