// Package syncconfig resolves the sync engine's runtime configuration:
// batch size, server base URL, and retry bound. Values come from the
// environment first, falling back to documented defaults (§6).
package syncconfig

import (
	"os"
	"strconv"
)

const (
	envBatchSize  = "SYNC_BATCH_SIZE"
	envAPIBaseURL = "API_BASE_URL"
	envMaxRetries = "MAX_RETRIES"

	defaultBatchSize  = 10
	defaultAPIBaseURL = "http://localhost:3000/api"
	defaultMaxRetries = 3
)

// Config holds the resolved sync engine settings.
type Config struct {
	BatchSize  int    `json:"sync_batch_size"`
	APIBaseURL string `json:"api_base_url"`
	MaxRetries int    `json:"max_retries"`
}

// Load resolves Config from the environment, falling back to defaults
// for anything unset or malformed.
func Load() Config {
	return Config{
		BatchSize:  GetBatchSize(),
		APIBaseURL: GetAPIBaseURL(),
		MaxRetries: GetMaxRetries(),
	}
}

// GetBatchSize returns SYNC_BATCH_SIZE, defaulting to 10.
func GetBatchSize() int {
	return parsePositiveIntEnv(envBatchSize, defaultBatchSize)
}

// GetAPIBaseURL returns API_BASE_URL, defaulting to the local dev server.
func GetAPIBaseURL() string {
	if v := os.Getenv(envAPIBaseURL); v != "" {
		return v
	}
	return defaultAPIBaseURL
}

// GetMaxRetries returns MAX_RETRIES, defaulting to 3.
func GetMaxRetries() int {
	return parsePositiveIntEnv(envMaxRetries, defaultMaxRetries)
}

func parsePositiveIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
