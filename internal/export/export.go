// Package export writes finished session records to disk as JSON and as a
// plain-text transcript.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/consilium-health/consilium/pkg/models"
)

// Exporter writes session records into a target directory.
type Exporter struct {
	dir string
}

// New creates an exporter targeting dir. The directory is created on first
// write.
func New(dir string) *Exporter {
	if dir == "" {
		dir = "./data/sessions"
	}
	return &Exporter{dir: dir}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// JSONPath returns the JSON export path for a session id.
func (e *Exporter) JSONPath(sessionID string) string {
	return filepath.Join(e.dir, "mdt_session_"+sessionID+".json")
}

// TranscriptPath returns the plain-text export path for a session id.
func (e *Exporter) TranscriptPath(sessionID string) string {
	return filepath.Join(e.dir, "mdt_session_"+sessionID+".txt")
}

// WriteJSON writes the full session record as indented JSON and returns the
// file path.
func (e *Exporter) WriteJSON(s *models.Session) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session %s: %w", s.ID, err)
	}

	path := e.JSONPath(s.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write session export: %w", err)
	}
	return path, nil
}

// WriteTranscript writes a human-readable transcript of the session and
// returns the file path.
func (e *Exporter) WriteTranscript(s *models.Session) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := e.TranscriptPath(s.ID)
	if err := os.WriteFile(path, []byte(Transcript(s)), 0644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// Transcript renders the session as a plain-text report.
func Transcript(s *models.Session) string {
	var b strings.Builder

	rule := strings.Repeat("=", 70)
	section := strings.Repeat("-", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "MDT DISCUSSION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Session:   %s\n", s.ID)
	fmt.Fprintf(&b, "Status:    %s\n", s.Status)
	fmt.Fprintf(&b, "Started:   %s\n", s.StartTime.Format(time.RFC1123))
	if !s.EndTime.IsZero() {
		fmt.Fprintf(&b, "Ended:     %s\n", s.EndTime.Format(time.RFC1123))
		fmt.Fprintf(&b, "Duration:  %s\n", s.Duration().Round(time.Second))
	}
	fmt.Fprintf(&b, "Team:      %s\n", joinNames(s.Participants))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, section)
	fmt.Fprintln(&b, "CASE")
	fmt.Fprintln(&b, section)
	fmt.Fprintln(&b, s.Case.Summary())

	writeOpinions(&b, section, "INDIVIDUAL ANALYSIS", s.IndividualAnalysis)
	writeOpinions(&b, section, "SHARING DISCUSSION", s.SharingDiscussion)

	if s.Conflict != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, section)
		fmt.Fprintln(&b, "CONFLICT DETECTION")
		fmt.Fprintln(&b, section)
		fmt.Fprintf(&b, "Conflicts detected: %v (initial consensus %.2f, %d opinions)\n",
			s.Conflict.Detected, s.Conflict.ConsensusScore, s.Conflict.OpinionsAnalyzed)
		if s.Conflict.Analysis != "" {
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, s.Conflict.Analysis)
		}
	}

	for _, round := range s.Rounds {
		writeOpinions(&b, section,
			fmt.Sprintf("DISCUSSION ROUND %d (consensus %.2f)", round.Number, round.ConsensusScore),
			round.Opinions)
	}

	if s.Consensus != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, section)
		fmt.Fprintln(&b, "CONSENSUS EVALUATION")
		fmt.Fprintln(&b, section)
		reached := "not reached"
		if s.Consensus.Reached {
			reached = "reached"
		}
		fmt.Fprintf(&b, "Consensus %s: score %.2f (threshold %.2f)\n",
			reached, s.Consensus.Score, s.Consensus.Threshold)
		if s.Consensus.Evaluation != "" {
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, s.Consensus.Evaluation)
		}
	}

	if s.FinalResult != nil {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, rule)
		fmt.Fprintln(&b, "FINAL CONCLUSION")
		fmt.Fprintln(&b, rule)
		if s.FinalResult.Failed() {
			fmt.Fprintf(&b, "(coordination failed: %s)\n", s.FinalResult.Err)
		} else {
			fmt.Fprintf(&b, "Confidence: %.0f%%\n\n", s.FinalResult.Confidence*100)
			fmt.Fprintln(&b, s.FinalResult.Response)
		}
	}

	return b.String()
}

func writeOpinions(b *strings.Builder, section, title string, opinions []models.Opinion) {
	if len(opinions) == 0 {
		return
	}
	fmt.Fprintln(b)
	fmt.Fprintln(b, section)
	fmt.Fprintln(b, title)
	fmt.Fprintln(b, section)
	for _, op := range opinions {
		fmt.Fprintln(b)
		if op.Failed() {
			fmt.Fprintf(b, "[%s] (no response: %s)\n", op.Agent, op.Err)
			continue
		}
		fmt.Fprintf(b, "[%s] (confidence %.2f)\n", op.Agent, op.Confidence)
		fmt.Fprintln(b, op.Response)
	}
}

func joinNames(participants []models.Specialty) string {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.DisplayName()
	}
	return strings.Join(names, ", ")
}
