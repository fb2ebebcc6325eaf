package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "0.0.0.0"
  port: 9090

storage:
  type: "aws"
  s3_bucket: "pos-pipeline"
  aws_region: "eu-west-1"
  raw_prefix: "incoming"
  processed_prefix: "harmonized"

queue:
  url: "https://sqs.eu-west-1.amazonaws.com/123456789/artifact-events"

notify:
  teams_webhook_url: "https://example.webhook.office.com/hook"

redis:
  addr: "localhost:6379"

pipeline:
  latest_prefix: "current"
  history_prefix: "archive"
  lock_ttl_seconds: 30

log_level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.GetHost())
	assert.Equal(t, 9090, cfg.Server.GetPort())
	assert.Equal(t, "aws", cfg.Storage.Type)
	assert.Equal(t, "pos-pipeline", cfg.Storage.S3Bucket)
	assert.Equal(t, "incoming", cfg.Storage.GetRawPrefix())
	assert.Equal(t, "harmonized", cfg.Storage.GetProcessedPrefix())
	assert.Equal(t, "https://sqs.eu-west-1.amazonaws.com/123456789/artifact-events", cfg.Queue.URL)
	assert.Equal(t, "https://example.webhook.office.com/hook", cfg.Notify.TeamsWebhookURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "current", cfg.Pipeline.GetLatestPrefix())
	assert.Equal(t, "archive", cfg.Pipeline.GetHistoryPrefix())
	assert.Equal(t, 30, cfg.Pipeline.GetLockTTLSeconds())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.GetHost())
	assert.Equal(t, 8080, cfg.Server.GetPort())
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./data", cfg.Storage.LocalPath)
	assert.Equal(t, "raw", cfg.Storage.GetRawPrefix())
	assert.Equal(t, "processed", cfg.Storage.GetProcessedPrefix())
	assert.Equal(t, "latest", cfg.Pipeline.GetLatestPrefix())
	assert.Equal(t, "by-timestamp", cfg.Pipeline.GetHistoryPrefix())
	assert.Equal(t, 60, cfg.Pipeline.GetLockTTLSeconds())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: "local"
  s3_bucket: "from-file"
`)

	t.Setenv("STORAGE_TYPE", "aws")
	t.Setenv("STORAGE_S3_BUCKET", "from-env")
	t.Setenv("TEAMS_WEBHOOK_URL", "https://env.webhook.office.com/hook")
	t.Setenv("PORT", "7777")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "aws", cfg.Storage.Type)
	assert.Equal(t, "from-env", cfg.Storage.S3Bucket)
	assert.Equal(t, "https://env.webhook.office.com/hook", cfg.Notify.TeamsWebhookURL)
	assert.Equal(t, 7777, cfg.Server.GetPort())
}
