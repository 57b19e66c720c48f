package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: "key"
  model: "gpt-4o-mini"
db:
  host: "localhost"
  user: "postgres"
  name: "sales"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Retry.MaxRetries)
	require.Equal(t, 2*time.Second, cfg.Retry.Delay())
	require.Equal(t, 30*time.Second, cfg.Feed.Timeout())
	require.Equal(t, 5432, cfg.DB.Port)
	require.Equal(t, "0.0.0.0:8080", cfg.API.Addr)
	require.Equal(t, 7200, cfg.Redis.TTLSeconds)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: "http://feed.local/sales.xml"
  timeout_seconds: 5
llm:
  base_url: "http://llm.local/v1"
  api_key: "key"
  model: "m"
db:
  host: "db"
  port: 5433
  user: "u"
  password: "p"
  name: "n"
retry:
  max_retries: 5
  delay_seconds: 1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://feed.local/sales.xml", cfg.Feed.URL)
	require.Equal(t, 5*time.Second, cfg.Feed.Timeout())
	require.Equal(t, 5433, cfg.DB.Port)
	require.Equal(t, 5, cfg.Retry.MaxRetries)
	require.Equal(t, time.Second, cfg.Retry.Delay())
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: "m"
db:
  host: "db"
  user: "u"
  name: "n"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "api_key")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
