package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/agent"
	"github.com/consilium-health/consilium/internal/export"
	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/internal/state"
)

var (
	sessionsLimit        int
	sessionsExportFormat string
	sessionsExportDir    string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse and export past discussions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSessionDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sessions, err := db.ListSessions(sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tPATIENT\tSTATUS\tCONSENSUS\tROUNDS\tSTARTED")
		for _, s := range sessions {
			consensus := fmt.Sprintf("%.2f", s.ConsensusScore)
			if s.ConsensusReached {
				consensus += " ✓"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				s.ID, s.PatientID, s.Status, consensus, s.Rounds,
				s.StartTime.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSessionDB()
		if err != nil {
			return err
		}
		defer db.Close()

		session, err := db.GetSession(args[0])
		if err != nil {
			return err
		}
		fmt.Print(export.Transcript(session))
		return nil
	},
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to JSON or TXT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSessionDB()
		if err != nil {
			return err
		}
		defer db.Close()

		session, err := db.GetSession(args[0])
		if err != nil {
			return err
		}

		dir := sessionsExportDir
		if dir == "" {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dir = cfg.Export.Dir
		}
		exporter := export.New(dir)

		var path string
		switch sessionsExportFormat {
		case "json":
			path, err = exporter.WriteJSON(session)
		case "txt":
			path, err = exporter.WriteTranscript(session)
		default:
			return fmt.Errorf("unsupported format %q (use json or txt)", sessionsExportFormat)
		}
		if err != nil {
			return err
		}
		color.Green("✓ exported to %s", path)
		return nil
	},
}

var sessionsSummarizeCmd = &cobra.Command{
	Use:   "summarize <session-id>",
	Short: "Produce a fresh coordinator summary of a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSessionDB()
		if err != nil {
			return err
		}
		defer db.Close()

		session, err := db.GetSession(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		client, err := llm.NewClient(cfg)
		if err != nil {
			return err
		}

		coordinator := agent.NewCoordinator(client, prompt.NewStore(cfg.Prompts.Dir))
		var summary string
		if session.FinalResult != nil && !session.FinalResult.Failed() {
			summary, err = coordinator.SummarizeOutcome(cmd.Context(), session.Case, session.AllOpinions(), *session.FinalResult)
		} else {
			summary, err = coordinator.Summarize(cmd.Context(), session.Case, session.AllOpinions())
		}
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openSessionDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteSession(args[0]); err != nil {
			return err
		}
		color.Green("✓ deleted %s", args[0])
		return nil
	},
}

func openSessionDB() (*state.DB, error) {
	return state.Open(state.DefaultDBPath())
}

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list (0 for all)")
	sessionsExportCmd.Flags().StringVar(&sessionsExportFormat, "format", "json", "Export format: json or txt")
	sessionsExportCmd.Flags().StringVar(&sessionsExportDir, "dir", "", "Export directory (default from config)")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsSummarizeCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
