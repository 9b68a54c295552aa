// Package agent implements the discussion agents: one specialist per
// specialty plus the MDT coordinator.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/consilium-health/consilium/internal/knowledge"
	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/pkg/models"
)

// Specialist is one role-specific discussion agent. Its calls never return an
// error: failures are recorded on the Opinion so one failed agent does not
// abort a running session.
type Specialist struct {
	specialty models.Specialty
	completer llm.Completer
	prompts   *prompt.Store
	kb        *knowledge.Base
}

// NewSpecialist creates a specialist agent. kb may be nil; the agent then
// works without retrieved knowledge.
func NewSpecialist(specialty models.Specialty, completer llm.Completer, prompts *prompt.Store, kb *knowledge.Base) (*Specialist, error) {
	if !specialty.Valid() || specialty == models.SpecialtyCoordinator {
		return nil, fmt.Errorf("invalid specialist specialty %q", specialty)
	}
	return &Specialist{
		specialty: specialty,
		completer: completer,
		prompts:   prompts,
		kb:        kb,
	}, nil
}

// Specialty returns the agent's role key.
func (a *Specialist) Specialty() models.Specialty { return a.specialty }

// Name returns the agent's display name.
func (a *Specialist) Name() string { return a.specialty.DisplayName() }

// Analyze produces the agent's opinion on the case. otherOpinions may be nil
// during individual analysis; during the sharing phase it carries the other
// specialists' analyses.
func (a *Specialist) Analyze(ctx context.Context, c models.Case, otherOpinions []models.Opinion) models.Opinion {
	return a.analyze(ctx, c, otherOpinions, nil)
}

// AnalyzeStream is Analyze with per-chunk streaming via onChunk.
func (a *Specialist) AnalyzeStream(ctx context.Context, c models.Case, otherOpinions []models.Opinion, onChunk func(string)) models.Opinion {
	return a.analyze(ctx, c, otherOpinions, onChunk)
}

func (a *Specialist) analyze(ctx context.Context, c models.Case, otherOpinions []models.Opinion, onChunk func(string)) models.Opinion {
	userPrompt, err := a.buildAnalysisPrompt(ctx, c, otherOpinions)
	if err != nil {
		return a.failed(err)
	}
	return a.call(ctx, userPrompt, 0, onChunk)
}

// DiscussRound produces the agent's position for one multi-round discussion
// round, given the full discussion history so far.
func (a *Specialist) DiscussRound(ctx context.Context, c models.Case, history []models.Opinion, round int) models.Opinion {
	template, err := a.prompts.Get(prompt.DiscussionRound)
	if err != nil {
		return a.failed(err)
	}

	contextBlock := a.caseContext(ctx, c)
	userPrompt, missing := prompt.SafeFormat(template, map[string]string{
		"round":              fmt.Sprintf("%d", round),
		"case_summary":       c.Summary(),
		"discussion_history": FormatOpinions(history),
	})
	if len(missing) > 0 {
		log.Printf("agent %s: discussion prompt missing vars %v", a.Name(), missing)
	}
	if contextBlock != "" {
		userPrompt = prompt.JoinSections(userPrompt, "Relevant medical knowledge:\n"+contextBlock)
	}

	op := a.call(ctx, userPrompt, round, nil)
	return op
}

// call executes the LLM request and wraps the result as an Opinion.
func (a *Specialist) call(ctx context.Context, userPrompt string, round int, onChunk func(string)) models.Opinion {
	system, err := a.systemPrompt()
	if err != nil {
		return a.failed(err)
	}

	req := llm.Request{System: system, Prompt: userPrompt, Agent: a.Name()}

	var response string
	if onChunk != nil {
		response, err = a.completer.Stream(ctx, req, onChunk)
	} else {
		response, err = a.completer.Complete(ctx, req)
	}
	if err != nil {
		log.Printf("agent %s: LLM call failed: %v", a.Name(), err)
		return a.failed(err)
	}

	return models.Opinion{
		Agent:      a.Name(),
		Specialty:  a.specialty,
		Response:   response,
		Round:      round,
		Confidence: ExtractConfidence(response),
		Timestamp:  time.Now(),
	}
}

func (a *Specialist) failed(err error) models.Opinion {
	return models.Opinion{
		Agent:     a.Name(),
		Specialty: a.specialty,
		Err:       err.Error(),
		Timestamp: time.Now(),
	}
}

// systemPrompt joins the shared base prompt with the role-specific one.
func (a *Specialist) systemPrompt() (string, error) {
	base, err := a.prompts.Get(prompt.SystemBase)
	if err != nil {
		return "", err
	}
	id, _ := prompt.SystemFor(a.specialty)
	roleSystem, err := a.prompts.Get(id)
	if err != nil {
		return "", err
	}
	return prompt.JoinSections(base, roleSystem), nil
}

func (a *Specialist) buildAnalysisPrompt(ctx context.Context, c models.Case, otherOpinions []models.Opinion) (string, error) {
	analysisID, ok := prompt.AnalysisFor(a.specialty)
	if !ok {
		return "", fmt.Errorf("no analysis prompt for %q", a.specialty)
	}
	template, err := a.prompts.Get(analysisID)
	if err != nil {
		return "", err
	}

	checklist := ""
	if checklistID, ok := prompt.ChecklistFor(a.specialty); ok {
		if text, err := a.prompts.Get(checklistID); err == nil {
			checklist = text
		}
	}

	others := ""
	if len(otherOpinions) > 0 {
		others = "Opinions from the other specialists:\n" + FormatOpinions(otherOpinions)
	}

	out, missing := prompt.SafeFormat(template, map[string]string{
		"case_summary":   c.Summary(),
		"context":        a.caseContext(ctx, c),
		"checklist":      checklist,
		"other_opinions": others,
	})
	if len(missing) > 0 {
		log.Printf("agent %s: analysis prompt missing vars %v", a.Name(), missing)
	}
	return out, nil
}

// caseContext retrieves knowledge for the case. Retrieval failure degrades to
// an empty context rather than failing the analysis.
func (a *Specialist) caseContext(ctx context.Context, c models.Case) string {
	if a.kb == nil {
		return ""
	}
	out, err := a.kb.ContextForCase(ctx, c, a.specialty)
	if err != nil {
		log.Printf("agent %s: knowledge retrieval failed: %v", a.Name(), err)
		return ""
	}
	return out
}

// FormatOpinions renders opinions as labelled blocks for inclusion in
// prompts. Failed opinions are rendered with their error so downstream agents
// know a voice is missing.
func FormatOpinions(opinions []models.Opinion) string {
	if len(opinions) == 0 {
		return "(no opinions yet)"
	}

	var sb strings.Builder
	for i, op := range opinions {
		if i > 0 {
			sb.WriteString("\n")
		}
		header := fmt.Sprintf("--- %s", op.Agent)
		if op.Round > 0 {
			header += fmt.Sprintf(" (round %d)", op.Round)
		}
		if !op.Failed() {
			header += fmt.Sprintf(" (confidence %.2f)", op.Confidence)
		}
		header += " ---"
		sb.WriteString(header + "\n")
		if op.Failed() {
			sb.WriteString("(no response: " + op.Err + ")\n")
		} else {
			sb.WriteString(strings.TrimSpace(op.Response) + "\n")
		}
	}
	return sb.String()
}
