package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: tubescript
database:
  postgres:
    host: localhost
    database: tubescript
    user: postgres
  redis:
    address: localhost:6379
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.Providers.Backend)
	assert.Equal(t, 60000, cfg.Providers.Timeout)
	assert.Equal(t, 2048, cfg.Providers.MaxTokens)
	assert.Equal(t, "2023-06-01", cfg.Providers.Claude.Version)
	assert.Equal(t, 3, cfg.Quota.FreeTierLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_RejectsUnknownBackend(t *testing.T) {
	_, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
providers:
  backend: bard
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "providers.backend")
}

func TestLoadFromFile_RequiresStores(t *testing.T) {
	_, err := LoadFromFile(writeConfigFile(t, `
app:
  name: tubescript
`))
	require.Error(t, err)
}

func TestLoadFromFile_EnvOverrideForSecrets(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_from_env")
	t.Setenv("GEMINI_API_KEY", "gm_from_env")

	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "sk_live_from_env", cfg.Billing.Stripe.SecretKey)
	assert.Equal(t, "gm_from_env", cfg.Providers.Gemini.APIKey)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 60*time.Second, GetDuration(60000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, User: "app", Password: "secret",
		Database: "tubescript", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=tubescript sslmode=disable",
		p.GetDSN(),
	)
}
