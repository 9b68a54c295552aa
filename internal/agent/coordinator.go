package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/pkg/models"
)

// Coordinator is the MDT coordinator agent. It detects conflicts between
// specialist opinions, scores consensus, and produces the final integrated
// conclusion.
type Coordinator struct {
	completer llm.Completer
	prompts   *prompt.Store
}

// NewCoordinator creates the coordinator agent.
func NewCoordinator(completer llm.Completer, prompts *prompt.Store) *Coordinator {
	return &Coordinator{completer: completer, prompts: prompts}
}

// Name returns the coordinator's display name.
func (c *Coordinator) Name() string {
	return models.SpecialtyCoordinator.DisplayName()
}

func (c *Coordinator) systemPrompt() string {
	base, err := c.prompts.Get(prompt.SystemBase)
	if err != nil {
		base = ""
	}
	system, err := c.prompts.Get(prompt.CoordinatorSystem)
	if err != nil {
		system = ""
	}
	return prompt.JoinSections(base, system)
}

func (c *Coordinator) complete(ctx context.Context, id prompt.ID, vars map[string]string) (string, error) {
	template, err := c.prompts.Get(id)
	if err != nil {
		return "", err
	}
	userPrompt, missing := prompt.SafeFormat(template, vars)
	if len(missing) > 0 {
		log.Printf("coordinator: prompt %s missing vars %v", id, missing)
	}
	return c.completer.Complete(ctx, llm.Request{System: c.systemPrompt(), Prompt: userPrompt, Agent: c.Name()})
}

// DetectConflicts asks the coordinator whether the opinions materially
// conflict. Fewer than two usable opinions means nothing to conflict; an LLM
// failure is reported as a conflict so the discussion errs toward another
// round.
func (c *Coordinator) DetectConflicts(ctx context.Context, caseData models.Case, opinions []models.Opinion) *models.ConflictReport {
	usable := usableResponses(opinions)
	if len(usable) < 2 {
		return &models.ConflictReport{
			Detected:         false,
			Analysis:         "Too few specialist opinions to detect conflicts.",
			ConsensusScore:   1.0,
			OpinionsAnalyzed: len(opinions),
			Timestamp:        time.Now(),
		}
	}

	response, err := c.complete(ctx, prompt.ConflictDetection, map[string]string{
		"case_summary": caseData.Summary(),
		"opinions":     FormatOpinions(opinions),
	})
	if err != nil {
		log.Printf("coordinator: conflict detection failed: %v", err)
		return &models.ConflictReport{
			Detected:         true,
			Analysis:         fmt.Sprintf("Conflict detection failed: %v", err),
			ConsensusScore:   0,
			OpinionsAnalyzed: len(opinions),
			Timestamp:        time.Now(),
		}
	}

	return &models.ConflictReport{
		Detected:         parseConflictResponse(response),
		Analysis:         response,
		ConsensusScore:   LexicalConsensus(usable),
		OpinionsAnalyzed: len(opinions),
		Timestamp:        time.Now(),
	}
}

// EvaluateConsensus scores how close the team is to consensus. The final
// score is the mean of the score stated by the LLM evaluation and the lexical
// agreement metric. Fewer than two usable opinions count as full consensus;
// an LLM failure yields a middling 0.5 with consensus not reached.
func (c *Coordinator) EvaluateConsensus(ctx context.Context, caseData models.Case, opinions []models.Opinion, threshold float64) *models.ConsensusReport {
	usable := usableResponses(opinions)
	if len(usable) < 2 {
		return &models.ConsensusReport{
			Score:         1.0,
			Reached:       true,
			Threshold:     threshold,
			Evaluation:    "Too few specialist opinions; full consensus assumed.",
			LLMScore:      1.0,
			LexicalScore:  1.0,
			OpinionsCount: len(opinions),
			Timestamp:     time.Now(),
		}
	}

	lexical := LexicalConsensus(usable)

	response, err := c.complete(ctx, prompt.ConsensusEvaluation, map[string]string{
		"case_summary": caseData.Summary(),
		"opinions":     FormatOpinions(opinions),
		"threshold":    fmt.Sprintf("%.2f", threshold),
	})
	if err != nil {
		log.Printf("coordinator: consensus evaluation failed: %v", err)
		return &models.ConsensusReport{
			Score:         0.5,
			Reached:       false,
			Threshold:     threshold,
			Evaluation:    fmt.Sprintf("Consensus evaluation failed: %v", err),
			LexicalScore:  lexical,
			OpinionsCount: len(opinions),
			Timestamp:     time.Now(),
		}
	}

	llmScore := extractConsensusScore(response)
	final := (llmScore + lexical) / 2

	return &models.ConsensusReport{
		Score:         final,
		Reached:       final >= threshold,
		Threshold:     threshold,
		Evaluation:    response,
		LLMScore:      llmScore,
		LexicalScore:  lexical,
		OpinionsCount: len(opinions),
		Timestamp:     time.Now(),
	}
}

// FinalCoordination produces the final integrated MDT conclusion.
func (c *Coordinator) FinalCoordination(ctx context.Context, caseData models.Case, history []models.Opinion, consensus *models.ConsensusReport, onChunk func(string)) models.Opinion {
	consensusText := "No consensus evaluation was performed."
	if consensus != nil {
		state := "was not reached"
		if consensus.Reached {
			state = "was reached"
		}
		consensusText = fmt.Sprintf("Consensus %s (score %.2f, threshold %.2f).\n%s",
			state, consensus.Score, consensus.Threshold, consensus.Evaluation)
	}

	template, err := c.prompts.Get(prompt.FinalCoordination)
	if err != nil {
		return c.failed(err)
	}
	userPrompt, missing := prompt.SafeFormat(template, map[string]string{
		"case_summary":         caseData.Summary(),
		"discussion_history":   FormatOpinions(history),
		"consensus_evaluation": consensusText,
	})
	if len(missing) > 0 {
		log.Printf("coordinator: final coordination prompt missing vars %v", missing)
	}

	req := llm.Request{System: c.systemPrompt(), Prompt: userPrompt, Agent: c.Name()}
	var response string
	if onChunk != nil {
		response, err = c.completer.Stream(ctx, req, onChunk)
	} else {
		response, err = c.completer.Complete(ctx, req)
	}
	if err != nil {
		log.Printf("coordinator: final coordination failed: %v", err)
		return c.failed(err)
	}

	return models.Opinion{
		Agent:      c.Name(),
		Specialty:  models.SpecialtyCoordinator,
		Response:   response,
		Confidence: ExtractConfidence(response),
		Timestamp:  time.Now(),
	}
}

// Summarize produces a fresh coordination note over a set of opinions,
// independent of a running session.
func (c *Coordinator) Summarize(ctx context.Context, caseData models.Case, opinions []models.Opinion) (string, error) {
	return c.complete(ctx, prompt.CoordinatorAnalysis, map[string]string{
		"case_summary": caseData.Summary(),
		"opinions":     FormatOpinions(opinions),
	})
}

// SummarizeOutcome writes the closing summary report for a session that
// reached a final conclusion.
func (c *Coordinator) SummarizeOutcome(ctx context.Context, caseData models.Case, history []models.Opinion, final models.Opinion) (string, error) {
	return c.complete(ctx, prompt.CaseSummary, map[string]string{
		"case_summary":       caseData.Summary(),
		"discussion_history": FormatOpinions(history),
		"final_decision":     final.Response,
	})
}

// AnswerQuery answers a free-form clinical question from retrieved reference
// passages.
func (c *Coordinator) AnswerQuery(ctx context.Context, query, passages string) (string, error) {
	return c.complete(ctx, prompt.RAGQuery, map[string]string{
		"query":   query,
		"context": passages,
	})
}

func (c *Coordinator) failed(err error) models.Opinion {
	return models.Opinion{
		Agent:     c.Name(),
		Specialty: models.SpecialtyCoordinator,
		Err:       err.Error(),
		Timestamp: time.Now(),
	}
}

// usableResponses returns the response texts of non-failed opinions.
func usableResponses(opinions []models.Opinion) []string {
	var out []string
	for _, op := range opinions {
		if !op.Failed() && op.Response != "" {
			out = append(out, op.Response)
		}
	}
	return out
}
