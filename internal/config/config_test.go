package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5, cfg.Pipeline.Concurrency)
	require.Equal(t, 15, cfg.Pipeline.MaxHeadlines)
	require.Equal(t, 4, cfg.Pipeline.MaxDescriptions)
	require.Equal(t, int64(1), cfg.Pricing.ScrapeHalfCredits)
	require.Equal(t, int64(1), cfg.Pricing.GenerateHalfCredits)
	require.Equal(t, "rsa-writer-bot/0.1", cfg.Retriever.UserAgent)
	require.Equal(t, 15*time.Second, cfg.RetrieverTimeout())
	require.Equal(t, "gpt-4o-mini", cfg.Generator.Model)
	require.Equal(t, 60*time.Second, cfg.GeneratorTimeout())
	require.Empty(t, cfg.DB.DSN)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
pipeline:
  concurrency: 3
  allowed_domains:
    - "*.shop.test"
generator:
  api_key: sk-test
pubsub:
  project_id: demo
  topic_name: pipeline-events
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 3, cfg.Pipeline.Concurrency)
	require.Equal(t, []string{"*.shop.test"}, cfg.Pipeline.AllowedDomains)
	require.Equal(t, "sk-test", cfg.Generator.APIKey)
	require.Equal(t, "pipeline-events", cfg.PubSub.TopicName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pipeline.Concurrency = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Pricing.ScrapeHalfCredits = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	require.Error(t, cfg.Validate(), "auth without key must fail")
	cfg.Auth.APIKey = "sekrit"
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.PubSub.TopicName = "pipeline-events"
	require.Error(t, cfg.Validate(), "topic without project must fail")
	cfg.PubSub.ProjectID = "demo"
	require.NoError(t, cfg.Validate())
}
