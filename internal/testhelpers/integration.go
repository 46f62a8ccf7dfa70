//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/weather-records-service/internal/client"
	"github.com/kjstillabower/weather-records-service/internal/config"
	"github.com/kjstillabower/weather-records-service/internal/service"
	"github.com/kjstillabower/weather-records-service/internal/store"
)

// IntegrationTestConfig holds configuration for live-provider tests.
type IntegrationTestConfig struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// GetIntegrationConfig loads integration test configuration from the environment.
// Skips the test if WEATHERSTACK_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHERSTACK_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHERSTACK_API_KEY not set, skipping integration test")
	}
	apiURL := os.Getenv("WEATHERSTACK_API_URL")
	if apiURL == "" {
		apiURL = config.DefaultWeatherAPIURL
	}
	return IntegrationTestConfig{APIKey: apiKey, APIURL: apiURL, Timeout: config.DefaultWeatherAPITimeout}
}

// SetupIntegrationService builds a RecordService backed by the live provider and a
// file store in a temp dir. Returns the service and the store so tests can reload it.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.RecordService, *store.FileStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	wc, err := client.NewWeatherClient(client.Options{
		APIKey:  cfg.APIKey,
		APIURL:  cfg.APIURL,
		Timeout: cfg.Timeout,
		Breaker: &client.BreakerConfig{FailureThreshold: 5, OpenTimeout: 30 * time.Second, Logger: logger},
	})
	if err != nil {
		t.Fatalf("NewWeatherClient() error = %v", err)
	}

	fs := store.NewFileStore(filepath.Join(t.TempDir(), "weather_data.json"), logger)
	if err := fs.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return service.NewRecordService(wc, fs), fs
}
