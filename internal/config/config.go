// Package config handles configuration loading and management for Consilium.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for Consilium.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Discussion DiscussionConfig `mapstructure:"discussion"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	Export     ExportConfig     `mapstructure:"export"`
	Web        WebConfig        `mapstructure:"web"`
	Prompts    PromptsConfig    `mapstructure:"prompts"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Bedrock BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig selects the AWS Bedrock transport instead of the direct API.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// LLMConfig holds sampling settings shared by all agents.
type LLMConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DiscussionConfig holds the multi-round discussion knobs.
type DiscussionConfig struct {
	// MaxRounds bounds the multi-round discussion phase.
	MaxRounds int `mapstructure:"max_rounds"`
	// ConsensusThreshold is the score at or above which consensus is reached.
	ConsensusThreshold float64 `mapstructure:"consensus_threshold"`
}

// KnowledgeConfig holds the vector knowledge store settings.
type KnowledgeConfig struct {
	DBPath       string          `mapstructure:"db_path"`
	ChunkSize    int             `mapstructure:"chunk_size"`
	ChunkOverlap int             `mapstructure:"chunk_overlap"`
	ContextLimit int             `mapstructure:"context_limit"`
	Embedding    EmbeddingConfig `mapstructure:"embedding"`
}

// EmbeddingConfig selects the embedding backend for semantic recall.
// Provider is one of "ollama", "genai" or "none".
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// ExportConfig holds session export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// WebConfig holds the HTTP front-end settings.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

// PromptsConfig holds the prompt store settings.
type PromptsConfig struct {
	// Dir overrides the embedded prompt templates when set.
	Dir string `mapstructure:"dir"`
	// Watch enables fsnotify-based hot reload of the prompt dir.
	Watch bool `mapstructure:"watch"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GEMINI_API_KEY)
// 2. Project config (.consilium.yaml in current directory or a parent)
// 3. User config (~/.config/consilium/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("knowledge.embedding.api_key", "GEMINI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Knowledge.Embedding.APIKey = os.ExpandEnv(cfg.Knowledge.Embedding.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.bedrock.enabled", cfg.Anthropic.Bedrock.Enabled)
	v.Set("anthropic.bedrock.region", cfg.Anthropic.Bedrock.Region)
	v.Set("anthropic.bedrock.profile", cfg.Anthropic.Bedrock.Profile)
	v.Set("llm.temperature", cfg.LLM.Temperature)
	v.Set("llm.max_tokens", cfg.LLM.MaxTokens)
	v.Set("discussion.max_rounds", cfg.Discussion.MaxRounds)
	v.Set("discussion.consensus_threshold", cfg.Discussion.ConsensusThreshold)
	v.Set("knowledge.db_path", cfg.Knowledge.DBPath)
	v.Set("knowledge.chunk_size", cfg.Knowledge.ChunkSize)
	v.Set("knowledge.chunk_overlap", cfg.Knowledge.ChunkOverlap)
	v.Set("knowledge.context_limit", cfg.Knowledge.ContextLimit)
	v.Set("knowledge.embedding.provider", cfg.Knowledge.Embedding.Provider)
	v.Set("knowledge.embedding.endpoint", cfg.Knowledge.Embedding.Endpoint)
	v.Set("knowledge.embedding.model", cfg.Knowledge.Embedding.Model)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("web.addr", cfg.Web.Addr)
	v.Set("prompts.dir", cfg.Prompts.Dir)
	v.Set("prompts.watch", cfg.Prompts.Watch)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.bedrock.enabled", false)

	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)

	v.SetDefault("discussion.max_rounds", 3)
	v.SetDefault("discussion.consensus_threshold", 0.75)

	v.SetDefault("knowledge.db_path", "./data/knowledge.db")
	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 200)
	v.SetDefault("knowledge.context_limit", 1500)
	v.SetDefault("knowledge.embedding.provider", "ollama")
	v.SetDefault("knowledge.embedding.endpoint", "http://localhost:11434")
	v.SetDefault("knowledge.embedding.model", "embeddinggemma")

	v.SetDefault("export.dir", "./data/sessions")
	v.SetDefault("web.addr", ":8080")

	v.SetDefault("prompts.dir", "")
	v.SetDefault("prompts.watch", false)
}

// getUserConfigDir returns the XDG config directory for Consilium.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "consilium")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "consilium")
	}
	return filepath.Join(home, ".config", "consilium")
}

// findProjectConfig searches for .consilium.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".consilium.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Temperature: 0.7,
			MaxTokens:   2000,
		},
		Discussion: DiscussionConfig{
			MaxRounds:          3,
			ConsensusThreshold: 0.75,
		},
		Knowledge: KnowledgeConfig{
			DBPath:       "./data/knowledge.db",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			ContextLimit: 1500,
			Embedding: EmbeddingConfig{
				Provider: "ollama",
				Endpoint: "http://localhost:11434",
				Model:    "embeddinggemma",
			},
		},
		Export: ExportConfig{Dir: "./data/sessions"},
		Web:    WebConfig{Addr: ":8080"},
	}
}
