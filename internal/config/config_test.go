package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {

	// Set test environment variables
	os.Setenv("LOG_ZAP_MODE", "test_mode")
	os.Setenv("COLLECTION_SLUG", "test-collection")
	os.Setenv("PRINT_CONFIGURATION_TO_LOGS", "true")

	// Get config
	cfg := Get()

	// Assert values
	assert.Equal(t, "test_mode", cfg.LogZapMode)
	assert.Equal(t, "test-collection", cfg.CollectionSlug)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)

	// Test singleton behavior
	cfg2 := Get()
	assert.Equal(t, cfg, cfg2)
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	// Reset viper
	viper.Reset()

	// Set test environment variables
	os.Setenv("LOG_ZAP_MODE", "debug")
	os.Setenv("COLLECTION_SLUG", "burbs")
	os.Setenv("MAKER_DENYLIST", "0xaaa,0xbbb")
	os.Setenv("CORRELATION_MAX_ATTEMPTS", "10")

	cfg := loadConfig()

	assert.Equal(t, "debug", cfg.LogZapMode)
	assert.Equal(t, "burbs", cfg.CollectionSlug)
	assert.Equal(t, "0xaaa,0xbbb", cfg.MakerDenylist)
	assert.Equal(t, uint64(10), cfg.CorrelationMaxAttempts)
}

func TestLoadConfigWithConfigFile(t *testing.T) {
	// Reset viper
	viper.Reset()

	// Create temporary config file
	content := []byte(`
LOG_ZAP_MODE=prod
COLLECTION_SLUG=file-collection
PRINT_CONFIGURATION_TO_LOGS=true
`)
	err := os.WriteFile("config.env", content, 0644)
	assert.NoError(t, err)
	defer os.Remove("config.env")

	// Clear environment variables to ensure we're reading from file
	os.Unsetenv("LOG_ZAP_MODE")
	os.Unsetenv("COLLECTION_SLUG")
	os.Unsetenv("PRINT_CONFIGURATION_TO_LOGS")

	cfg := loadConfig()

	assert.Equal(t, "prod", cfg.LogZapMode)
	assert.Equal(t, "file-collection", cfg.CollectionSlug)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)
}
