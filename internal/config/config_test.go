package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadTestConfig(t *testing.T, content string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	return Load(writeConfig(t, content))
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := loadTestConfig(t, `
openai:
  api_key: "test-key"
`)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/expenseguard.db", cfg.Database.Path)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, float32(0.1), cfg.OpenAI.Temperature)
	assert.Equal(t, 10, cfg.OpenAI.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_OverridesFromFile(t *testing.T) {
	cfg, err := loadTestConfig(t, `
server:
  port: 9090
openai:
  api_key: "test-key"
  model: "gpt-4"
  timeout: 10s
logger:
  level: "debug"
`)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.Equal(t, 10*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := loadTestConfig(t, `
server:
  port: 8080
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key")
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := loadTestConfig(t, `
server:
  port: 8080
`)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
}

func TestValidate_InvalidPort(t *testing.T) {
	_, err := loadTestConfig(t, `
server:
  port: -1
openai:
  api_key: "test-key"
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}
