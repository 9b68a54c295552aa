package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/agent"
	"github.com/consilium-health/consilium/internal/knowledge"
	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the medical knowledge base",
}

var kbIngestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Ingest .txt and .md documents from a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKB()
		if err != nil {
			return err
		}
		defer kb.Close()

		result, err := kb.IngestDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		color.Green("✓ %s", ingestSummary(result))
		return nil
	},
}

// ingestSummary renders the one-line outcome of an ingest run.
func ingestSummary(r *knowledge.IngestResult) string {
	return fmt.Sprintf("ingested %d file(s) (%d chunks), %d unchanged",
		len(r.Ingested), r.Chunks, len(r.Skipped))
}

var kbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKB()
		if err != nil {
			return err
		}
		defer kb.Close()

		stats, err := kb.Store().Stats()
		if err != nil {
			return err
		}
		fmt.Printf("store:    %s\n", stats.StorePath)
		fmt.Printf("files:    %d\n", stats.Files)
		fmt.Printf("chunks:   %d\n", stats.Chunks)
		fmt.Printf("embedded: %d\n", stats.Embedded)
		fmt.Printf("embedder: %s\n", stats.Embedder)
		return nil
	},
}

var kbQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKB()
		if err != nil {
			return err
		}
		defer kb.Close()

		result, err := kb.Query(cmd.Context(), args[0], 5)
		if err != nil {
			return err
		}
		if result == "" {
			fmt.Println("(no matches)")
			return nil
		}
		fmt.Println(result)
		return nil
	},
}

var kbAskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a clinical question from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		kb, err := knowledge.NewBase(cfg.Knowledge)
		if err != nil {
			return err
		}
		defer kb.Close()

		question := strings.Join(args, " ")
		passages, err := kb.Query(cmd.Context(), question, 5)
		if err != nil {
			return err
		}
		if passages == "" {
			return fmt.Errorf("no reference material matches the question; ingest documents first")
		}

		client, err := llm.NewClient(cfg)
		if err != nil {
			return err
		}
		coordinator := agent.NewCoordinator(client, prompt.NewStore(cfg.Prompts.Dir))
		answer, err := coordinator.AnswerQuery(cmd.Context(), question, passages)
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

var kbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := openKB()
		if err != nil {
			return err
		}
		defer kb.Close()

		if err := kb.Store().Clear(); err != nil {
			return err
		}
		color.Green("✓ knowledge base cleared")
		return nil
	},
}

func openKB() (*knowledge.Base, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return knowledge.NewBase(cfg.Knowledge)
}

func init() {
	kbCmd.AddCommand(kbIngestCmd)
	kbCmd.AddCommand(kbStatsCmd)
	kbCmd.AddCommand(kbQueryCmd)
	kbCmd.AddCommand(kbAskCmd)
	kbCmd.AddCommand(kbClearCmd)
}
