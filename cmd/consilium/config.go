package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Consilium configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/consilium/config.yaml
Project-specific overrides can be placed in .consilium.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal(fmt.Errorf("loading config: %w", err))
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API keys if set
	mask := func(key string) string {
		if key == "" {
			return "(not set)"
		}
		return "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", mask(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.bedrock.enabled: %t\n", cfg.Anthropic.Bedrock.Enabled)
	fmt.Printf("anthropic.bedrock.region: %s\n", cfg.Anthropic.Bedrock.Region)
	fmt.Printf("llm.temperature: %g\n", cfg.LLM.Temperature)
	fmt.Printf("llm.max_tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Printf("discussion.max_rounds: %d\n", cfg.Discussion.MaxRounds)
	fmt.Printf("discussion.consensus_threshold: %g\n", cfg.Discussion.ConsensusThreshold)
	fmt.Printf("knowledge.db_path: %s\n", cfg.Knowledge.DBPath)
	fmt.Printf("knowledge.chunk_size: %d\n", cfg.Knowledge.ChunkSize)
	fmt.Printf("knowledge.chunk_overlap: %d\n", cfg.Knowledge.ChunkOverlap)
	fmt.Printf("knowledge.context_limit: %d\n", cfg.Knowledge.ContextLimit)
	fmt.Printf("knowledge.embedding.provider: %s\n", cfg.Knowledge.Embedding.Provider)
	fmt.Printf("knowledge.embedding.endpoint: %s\n", cfg.Knowledge.Embedding.Endpoint)
	fmt.Printf("knowledge.embedding.model: %s\n", cfg.Knowledge.Embedding.Model)
	fmt.Printf("knowledge.embedding.api_key: %s\n", mask(cfg.Knowledge.Embedding.APIKey))
	fmt.Printf("export.dir: %s\n", cfg.Export.Dir)
	fmt.Printf("web.addr: %s\n", cfg.Web.Addr)
	fmt.Printf("prompts.dir: %s\n", cfg.Prompts.Dir)
	fmt.Printf("prompts.watch: %t\n", cfg.Prompts.Watch)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fatal(err)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fatal(err)
	}

	if err := config.Save(cfg); err != nil {
		fatal(fmt.Errorf("saving config: %w", err))
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.bedrock.enabled":
		return strconv.FormatBool(cfg.Anthropic.Bedrock.Enabled), nil
	case "anthropic.bedrock.region":
		return cfg.Anthropic.Bedrock.Region, nil
	case "anthropic.bedrock.profile":
		return cfg.Anthropic.Bedrock.Profile, nil
	case "llm.temperature":
		return strconv.FormatFloat(cfg.LLM.Temperature, 'g', -1, 64), nil
	case "llm.max_tokens":
		return strconv.Itoa(cfg.LLM.MaxTokens), nil
	case "discussion.max_rounds":
		return strconv.Itoa(cfg.Discussion.MaxRounds), nil
	case "discussion.consensus_threshold":
		return strconv.FormatFloat(cfg.Discussion.ConsensusThreshold, 'g', -1, 64), nil
	case "knowledge.db_path":
		return cfg.Knowledge.DBPath, nil
	case "knowledge.embedding.provider":
		return cfg.Knowledge.Embedding.Provider, nil
	case "knowledge.embedding.endpoint":
		return cfg.Knowledge.Embedding.Endpoint, nil
	case "knowledge.embedding.model":
		return cfg.Knowledge.Embedding.Model, nil
	case "export.dir":
		return cfg.Export.Dir, nil
	case "web.addr":
		return cfg.Web.Addr, nil
	case "prompts.dir":
		return cfg.Prompts.Dir, nil
	case "prompts.watch":
		return strconv.FormatBool(cfg.Prompts.Watch), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.bedrock.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.Bedrock.Enabled = b
	case "anthropic.bedrock.region":
		cfg.Anthropic.Bedrock.Region = value
	case "anthropic.bedrock.profile":
		cfg.Anthropic.Bedrock.Profile = value
	case "llm.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		cfg.LLM.Temperature = f
	case "llm.max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		cfg.LLM.MaxTokens = n
	case "discussion.max_rounds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		cfg.Discussion.MaxRounds = n
	case "discussion.consensus_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		if f <= 0 || f > 1 {
			return fmt.Errorf("threshold must be in (0, 1]: %s", value)
		}
		cfg.Discussion.ConsensusThreshold = f
	case "knowledge.db_path":
		cfg.Knowledge.DBPath = value
	case "knowledge.embedding.provider":
		switch value {
		case "ollama", "genai", "none":
			cfg.Knowledge.Embedding.Provider = value
		default:
			return fmt.Errorf("provider must be ollama, genai or none: %s", value)
		}
	case "knowledge.embedding.endpoint":
		cfg.Knowledge.Embedding.Endpoint = value
	case "knowledge.embedding.model":
		cfg.Knowledge.Embedding.Model = value
	case "export.dir":
		cfg.Export.Dir = value
	case "web.addr":
		cfg.Web.Addr = value
	case "prompts.dir":
		cfg.Prompts.Dir = value
	case "prompts.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Prompts.Watch = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetUserConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file locations",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("user:    %s\n", config.GetUserConfigPath())
		if p := config.GetProjectConfigPath(); p != "" {
			fmt.Printf("project: %s\n", p)
		} else {
			fmt.Println("project: (none)")
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}
