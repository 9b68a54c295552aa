package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 3, cfg.Discussion.MaxRounds)
	assert.Equal(t, 0.75, cfg.Discussion.ConsensusThreshold)
	assert.Equal(t, "./data/knowledge.db", cfg.Knowledge.DBPath)
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 200, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, "ollama", cfg.Knowledge.Embedding.Provider)
	assert.Equal(t, "./data/sessions", cfg.Export.Dir)
	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.False(t, cfg.Anthropic.Bedrock.Enabled)
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
anthropic:
  model: claude-sonnet-4-20250514
  bedrock:
    enabled: true
    region: us-west-2
discussion:
  max_rounds: 5
  consensus_threshold: 0.6
knowledge:
  embedding:
    provider: genai
    model: gemini-embedding-001
web:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Anthropic.Model)
	assert.True(t, cfg.Anthropic.Bedrock.Enabled)
	assert.Equal(t, "us-west-2", cfg.Anthropic.Bedrock.Region)
	assert.Equal(t, 5, cfg.Discussion.MaxRounds)
	assert.Equal(t, 0.6, cfg.Discussion.ConsensusThreshold)
	assert.Equal(t, "genai", cfg.Knowledge.Embedding.Provider)
	assert.Equal(t, ":9090", cfg.Web.Addr)

	// Unset keys keep their defaults
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("CONSILIUM_TEST_KEY", "sk-test-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
anthropic:
  api_key: ${CONSILIUM_TEST_KEY}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Anthropic.APIKey)
}

func TestLoadReadsEnvAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-456")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Run from an empty directory so no project config is picked up
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-env-456", cfg.Anthropic.APIKey)
}

func TestSaveRoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Anthropic.Model = "claude-opus-4-1-20250805"
	cfg.Discussion.MaxRounds = 4
	require.NoError(t, Save(cfg))

	loaded, err := LoadFromPath(GetUserConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-1-20250805", loaded.Anthropic.Model)
	assert.Equal(t, 4, loaded.Discussion.MaxRounds)
}
