package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/pkg/models"
)

func twoOpinions() []models.Opinion {
	return []models.Opinion{
		{Agent: "Pulmonologist", Specialty: models.SpecialtyPulmonology, Response: "uip pattern favored", Confidence: 0.8},
		{Agent: "Radiologist", Specialty: models.SpecialtyRadiology, Response: "uip pattern favored", Confidence: 0.9},
	}
}

func TestDetectConflictsTooFewOpinions(t *testing.T) {
	c := NewCoordinator(&fakeCompleter{}, prompt.NewStore(""))

	report := c.DetectConflicts(context.Background(), testCase, []models.Opinion{{Agent: "x", Response: "only one"}})
	if report.Detected {
		t.Error("expected no conflict with a single opinion")
	}
	if report.ConsensusScore != 1.0 {
		t.Errorf("score = %f, want 1.0", report.ConsensusScore)
	}
}

func TestDetectConflictsParsesResponse(t *testing.T) {
	f := &fakeCompleter{response: "Significant conflicts exist: radiology and pathology disagree on the pattern."}
	c := NewCoordinator(f, prompt.NewStore(""))

	report := c.DetectConflicts(context.Background(), testCase, twoOpinions())
	if !report.Detected {
		t.Error("expected conflict")
	}
	if report.OpinionsAnalyzed != 2 {
		t.Errorf("opinions analyzed = %d", report.OpinionsAnalyzed)
	}
	if report.ConsensusScore != 1.0 {
		t.Errorf("lexical score for identical opinions = %f, want 1.0", report.ConsensusScore)
	}
	if !strings.Contains(f.prompts[0], "uip pattern favored") {
		t.Error("opinions missing from prompt")
	}
}

func TestDetectConflictsErrorDefaultsToConflict(t *testing.T) {
	c := NewCoordinator(&fakeCompleter{err: errors.New("api down")}, prompt.NewStore(""))

	report := c.DetectConflicts(context.Background(), testCase, twoOpinions())
	if !report.Detected {
		t.Error("LLM failure should report a conflict")
	}
	if report.ConsensusScore != 0 {
		t.Errorf("score = %f, want 0", report.ConsensusScore)
	}
}

func TestEvaluateConsensusMeansScores(t *testing.T) {
	f := &fakeCompleter{response: "The team agrees closely.\n\nConsensus score: 0.9"}
	c := NewCoordinator(f, prompt.NewStore(""))

	report := c.EvaluateConsensus(context.Background(), testCase, twoOpinions(), 0.75)
	if report.LLMScore != 0.9 {
		t.Errorf("llm score = %f, want 0.9", report.LLMScore)
	}
	if report.LexicalScore != 1.0 {
		t.Errorf("lexical score = %f, want 1.0", report.LexicalScore)
	}
	if report.Score != 0.95 {
		t.Errorf("final score = %f, want 0.95", report.Score)
	}
	if !report.Reached {
		t.Error("consensus should be reached at 0.95 >= 0.75")
	}
}

func TestEvaluateConsensusErrorYieldsMiddlingScore(t *testing.T) {
	c := NewCoordinator(&fakeCompleter{err: errors.New("api down")}, prompt.NewStore(""))

	report := c.EvaluateConsensus(context.Background(), testCase, twoOpinions(), 0.75)
	if report.Score != 0.5 {
		t.Errorf("score = %f, want 0.5", report.Score)
	}
	if report.Reached {
		t.Error("consensus must not be reached on failure")
	}
}

func TestEvaluateConsensusTooFewOpinions(t *testing.T) {
	c := NewCoordinator(&fakeCompleter{}, prompt.NewStore(""))
	report := c.EvaluateConsensus(context.Background(), testCase, nil, 0.75)
	if !report.Reached || report.Score != 1.0 {
		t.Errorf("report = %+v, want full consensus", report)
	}
}

func TestFinalCoordination(t *testing.T) {
	f := &fakeCompleter{response: "Final diagnosis: IPF. Confidence: 75%"}
	c := NewCoordinator(f, prompt.NewStore(""))

	consensus := &models.ConsensusReport{Score: 0.8, Reached: true, Threshold: 0.75, Evaluation: "close agreement"}
	op := c.FinalCoordination(context.Background(), testCase, twoOpinions(), consensus, nil)

	if op.Failed() {
		t.Fatalf("unexpected failure: %s", op.Err)
	}
	if op.Specialty != models.SpecialtyCoordinator {
		t.Errorf("specialty = %q", op.Specialty)
	}
	if op.Confidence != 0.75 {
		t.Errorf("confidence = %f, want 0.75", op.Confidence)
	}
	if !strings.Contains(f.prompts[0], "close agreement") {
		t.Error("consensus evaluation missing from prompt")
	}
	if !strings.Contains(f.prompts[0], "score 0.80") {
		t.Error("consensus score missing from prompt")
	}
}

func TestSummarizeOutcomeIncludesFinalDecision(t *testing.T) {
	f := &fakeCompleter{response: "1. Case summary\n2. Key points per specialty"}
	c := NewCoordinator(f, prompt.NewStore(""))

	final := models.Opinion{
		Agent:     c.Name(),
		Specialty: models.SpecialtyCoordinator,
		Response:  "Final diagnosis: IPF, start antifibrotic therapy.",
	}
	report, err := c.SummarizeOutcome(context.Background(), testCase, twoOpinions(), final)
	if err != nil {
		t.Fatalf("SummarizeOutcome failed: %v", err)
	}
	if report != f.response {
		t.Errorf("report = %q", report)
	}
	if !strings.Contains(f.prompts[0], "Final diagnosis: IPF") {
		t.Error("final decision missing from prompt")
	}
	if !strings.Contains(f.prompts[0], "uip pattern favored") {
		t.Error("discussion history missing from prompt")
	}
	if !strings.Contains(f.prompts[0], "P-001") {
		t.Error("case summary missing from prompt")
	}
}

func TestAnswerQueryFillsTemplate(t *testing.T) {
	f := &fakeCompleter{response: "Subpleural sparing favors NSIP over UIP."}
	c := NewCoordinator(f, prompt.NewStore(""))

	answer, err := c.AnswerQuery(context.Background(),
		"what distinguishes NSIP from UIP on HRCT?",
		"[source: ild.md, score 0.91]\nSubpleural sparing is characteristic of NSIP.")
	if err != nil {
		t.Fatalf("AnswerQuery failed: %v", err)
	}
	if answer != f.response {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(f.prompts[0], "what distinguishes NSIP from UIP on HRCT?") {
		t.Error("question missing from prompt")
	}
	if !strings.Contains(f.prompts[0], "Subpleural sparing is characteristic of NSIP.") {
		t.Error("reference passages missing from prompt")
	}
}

func TestRosterDefaultsToAllSpecialists(t *testing.T) {
	roster, err := NewRoster(nil, &fakeCompleter{}, prompt.NewStore(""), nil)
	if err != nil {
		t.Fatalf("NewRoster failed: %v", err)
	}
	if len(roster.Specialists) != 5 {
		t.Errorf("specialists = %d, want 5", len(roster.Specialists))
	}
	if roster.Coordinator == nil {
		t.Error("coordinator missing")
	}
}

func TestRosterRejectsDuplicates(t *testing.T) {
	_, err := NewRoster(
		[]models.Specialty{models.SpecialtyRadiology, models.SpecialtyRadiology},
		&fakeCompleter{}, prompt.NewStore(""), nil,
	)
	if err == nil {
		t.Error("expected duplicate error")
	}
}

func TestRosterSkipsCoordinatorParticipant(t *testing.T) {
	roster, err := NewRoster(
		[]models.Specialty{models.SpecialtyPulmonology, models.SpecialtyCoordinator},
		&fakeCompleter{}, prompt.NewStore(""), nil,
	)
	if err != nil {
		t.Fatalf("NewRoster failed: %v", err)
	}
	if len(roster.Specialists) != 1 {
		t.Errorf("specialists = %d, want 1", len(roster.Specialists))
	}
}
