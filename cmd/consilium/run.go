package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/consilium-health/consilium/internal/council"
	"github.com/consilium-health/consilium/internal/export"
	"github.com/consilium-health/consilium/internal/tui"
	"github.com/consilium-health/consilium/pkg/models"
)

var (
	runPatientID string
	runSymptoms  string
	runHistory   string
	runImaging   string
	runLabs      string
	runPathology string
	runNotes     string
	runCaseFile  string

	runParticipants []string
	runRounds       int
	runThreshold    float64

	runUseTUI      bool
	runNoStream    bool
	runInteractive bool
	runNoSave      bool
	runNoExport    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an MDT discussion over a patient case",
	Long: `Run a full multidisciplinary discussion: parallel specialist
analysis, conflict detection, multi-round discussion when needed,
consensus evaluation and a coordinated final conclusion.

The case is given via flags or --case-file (JSON with patient_id,
symptoms, medical_history, imaging_results, lab_results,
pathology_results, additional_info).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCase()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if runRounds > 0 {
			cfg.Discussion.MaxRounds = runRounds
		}
		if runThreshold > 0 {
			cfg.Discussion.ConsensusThreshold = runThreshold
		}

		st, err := buildStack(cfg, runParticipants)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runNoStream && !runUseTUI {
			session, err := st.orchestrator.Run(ctx, c)
			if err != nil {
				return err
			}
			fmt.Print(export.Transcript(session))
			return finishSession(st, session, !runNoSave, !runNoExport)
		}

		events := st.orchestrator.RunStream(ctx, c)
		events, captured := captureSession(events)

		if runUseTUI {
			if err := tui.Run(ctx, events); err != nil {
				return err
			}
		} else {
			renderConsole(events)
		}

		session := captured()
		if session == nil {
			return fmt.Errorf("session did not complete")
		}
		return finishSession(st, session, !runNoSave, !runNoExport)
	},
}

// buildCase assembles the case from --case-file plus flag overrides, or
// prompts for the fields with --interactive.
func buildCase() (models.Case, error) {
	var c models.Case
	if runInteractive {
		return promptCase()
	}
	if runCaseFile != "" {
		data, err := os.ReadFile(runCaseFile)
		if err != nil {
			return c, fmt.Errorf("read case file: %w", err)
		}
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse case file: %w", err)
		}
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.PatientID, runPatientID)
	override(&c.Symptoms, runSymptoms)
	override(&c.MedicalHistory, runHistory)
	override(&c.ImagingResults, runImaging)
	override(&c.LabResults, runLabs)
	override(&c.PathologyResult, runPathology)
	override(&c.AdditionalInfo, runNotes)

	if c.PatientID == "" && c.Symptoms == "" {
		return c, fmt.Errorf("a case needs at least --patient or --symptoms (or --case-file, --interactive)")
	}
	return c, nil
}

// promptCase reads the case fields from stdin, one per line. Empty answers
// stay empty and are normalized to "N/A" downstream.
func promptCase() (models.Case, error) {
	var c models.Case
	reader := bufio.NewReader(os.Stdin)

	ask := func(label string, dst *string) error {
		fmt.Printf("%s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return err
		}
		*dst = strings.TrimSpace(line)
		return nil
	}

	fields := []struct {
		label string
		dst   *string
	}{
		{"Patient ID", &c.PatientID},
		{"Symptoms", &c.Symptoms},
		{"Medical history", &c.MedicalHistory},
		{"Imaging results", &c.ImagingResults},
		{"Lab results", &c.LabResults},
		{"Pathology results", &c.PathologyResult},
		{"Additional info", &c.AdditionalInfo},
	}
	for _, f := range fields {
		if err := ask(f.label, f.dst); err != nil {
			return c, fmt.Errorf("reading case input: %w", err)
		}
	}

	if c.PatientID == "" && c.Symptoms == "" {
		return c, fmt.Errorf("a case needs at least a patient id or symptoms")
	}
	return c, nil
}

// captureSession tees the event stream and remembers the final session.
func captureSession(in <-chan council.Event) (<-chan council.Event, func() *models.Session) {
	out := make(chan council.Event, 64)
	done := make(chan struct{})
	var session *models.Session

	go func() {
		defer close(out)
		defer close(done)
		for e := range in {
			if e.Type == council.EventSessionComplete && e.Session != nil {
				session = e.Session
			}
			out <- e
		}
	}()

	return out, func() *models.Session {
		<-done
		return session
	}
}

var specialtyColors = map[models.Specialty]*color.Color{
	models.SpecialtyPulmonology:  color.New(color.FgCyan),
	models.SpecialtyRadiology:    color.New(color.FgGreen),
	models.SpecialtyPathology:    color.New(color.FgMagenta),
	models.SpecialtyRheumatology: color.New(color.FgYellow),
	models.SpecialtyDataAnalysis: color.New(color.FgBlue),
	models.SpecialtyCoordinator:  color.New(color.FgRed, color.Bold),
}

func agentColor(s models.Specialty) *color.Color {
	if c, ok := specialtyColors[s]; ok {
		return c
	}
	return color.New(color.FgWhite)
}

// renderConsole prints the discussion live, streaming agent text as it
// arrives.
func renderConsole(events <-chan council.Event) {
	header := color.New(color.FgWhite, color.Bold)
	dim := color.New(color.Faint)
	var streaming string

	for e := range events {
		switch e.Type {
		case council.EventPhaseStart:
			header.Printf("\n=== %s ===\n", strings.ReplaceAll(string(e.Phase), "_", " "))
			if e.Message != "" {
				dim.Println(e.Message)
			}
		case council.EventPhaseSkip:
			dim.Printf("\n(%s)\n", e.Message)
		case council.EventRoundStart:
			header.Printf("\n--- round %d ---\n", e.Round)
		case council.EventAgentStart:
			// Parallel phases interleave chunks, so only stream for
			// one agent at a time and print the rest on completion.
			if streaming == "" {
				streaming = e.Agent
				agentColor(e.Specialty).Printf("\n%s:\n", e.Agent)
			}
		case council.EventAgentChunk:
			if e.Agent == streaming {
				fmt.Print(e.Chunk)
			}
		case council.EventAgentComplete:
			if e.Agent == streaming {
				streaming = ""
				fmt.Println()
			} else if e.Opinion != nil {
				agentColor(e.Specialty).Printf("\n%s:\n", e.Agent)
				if e.Opinion.Failed() {
					color.Red("(no response: %s)", e.Opinion.Err)
				} else {
					fmt.Println(e.Opinion.Response)
				}
			}
			if e.Opinion != nil && !e.Opinion.Failed() && e.Opinion.Confidence > 0 {
				dim.Printf("confidence %.2f\n", e.Opinion.Confidence)
			}
		case council.EventRoundComplete, council.EventRoundsComplete:
			dim.Println(e.Message)
		case council.EventPhaseComplete:
			if e.Conflict != nil {
				if e.Conflict.Detected {
					color.Yellow("conflicts detected (initial consensus %.2f)", e.Conflict.ConsensusScore)
				} else {
					color.Green("no conflicts detected")
				}
			}
			if e.Consensus != nil {
				if e.Consensus.Reached {
					color.Green("consensus reached: %.2f (threshold %.2f)", e.Consensus.Score, e.Consensus.Threshold)
				} else {
					color.Yellow("consensus not reached: %.2f (threshold %.2f)", e.Consensus.Score, e.Consensus.Threshold)
				}
			}
		case council.EventSessionComplete:
			if e.Message != "" {
				dim.Printf("\n%s\n", e.Message)
			}
		case council.EventSessionError:
			color.Red("\nsession failed: %s", e.Err)
		}
	}
}

// finishSession persists and exports a completed session.
func finishSession(st *stack, session *models.Session, save, doExport bool) error {
	if save && st.db != nil {
		if err := st.db.SaveSession(session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	if doExport {
		jsonPath, err := st.exporter.WriteJSON(session)
		if err != nil {
			return err
		}
		txtPath, err := st.exporter.WriteTranscript(session)
		if err != nil {
			return err
		}
		fmt.Printf("\nExported:\n  %s\n  %s\n", jsonPath, txtPath)
	}

	usage := st.client.Tracker().Total()
	fmt.Printf("Tokens: %d in / %d out across %d calls ($%.4f)\n",
		usage.Input, usage.Output, usage.Calls, st.client.Tracker().Cost())

	byAgent := st.client.Tracker().ByAgent()
	agents := make([]string, 0, len(byAgent))
	for name := range byAgent {
		agents = append(agents, name)
	}
	sort.Strings(agents)
	for _, name := range agents {
		u := byAgent[name]
		fmt.Printf("  %-22s %d in / %d out (%d calls)\n", name, u.Input, u.Output, u.Calls)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runPatientID, "patient", "", "Patient identifier")
	runCmd.Flags().StringVar(&runSymptoms, "symptoms", "", "Presenting symptoms")
	runCmd.Flags().StringVar(&runHistory, "history", "", "Medical history")
	runCmd.Flags().StringVar(&runImaging, "imaging", "", "Imaging results")
	runCmd.Flags().StringVar(&runLabs, "labs", "", "Laboratory results")
	runCmd.Flags().StringVar(&runPathology, "pathology", "", "Pathology results")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "Additional information")
	runCmd.Flags().StringVar(&runCaseFile, "case-file", "", "Path to a JSON case file")

	runCmd.Flags().StringSliceVar(&runParticipants, "participants", nil,
		"Specialties to include (default: all five)")
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Maximum discussion rounds")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Consensus threshold (0-1)")

	runCmd.Flags().BoolVar(&runUseTUI, "tui", false, "Show the live terminal UI")
	runCmd.Flags().BoolVar(&runNoStream, "no-stream", false, "Run quietly and print the transcript at the end")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Enter the case interactively")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Skip saving to session history")
	runCmd.Flags().BoolVar(&runNoExport, "no-export", false, "Skip JSON/TXT export")
}
