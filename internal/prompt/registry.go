// Package prompt provides the markdown prompt store for Consilium. Prompt
// templates ship embedded in the binary; an on-disk prompts directory can
// override them, with optional hot reload.
package prompt

import "github.com/consilium-health/consilium/pkg/models"

// ID names a registered prompt template.
type ID string

const (
	SystemBase ID = "system_base"

	CaseSummary ID = "case_summary"
	RAGQuery    ID = "rag_query"

	DiscussionRound ID = "discussion_round"

	CoordinatorSystem   ID = "coordinator_system"
	CoordinatorAnalysis ID = "coordinator_analysis"
	ConflictDetection   ID = "conflict_detection"
	ConsensusEvaluation ID = "consensus_evaluation"
	FinalCoordination   ID = "final_coordination"

	PulmonologySystem    ID = "pulmonology_system"
	PulmonologyAnalysis  ID = "pulmonology_analysis"
	PulmonologyChecklist ID = "pulmonology_checklist"

	RadiologySystem    ID = "radiology_system"
	RadiologyAnalysis  ID = "radiology_analysis"
	RadiologyChecklist ID = "radiology_checklist"

	PathologySystem    ID = "pathology_system"
	PathologyAnalysis  ID = "pathology_analysis"
	PathologyChecklist ID = "pathology_checklist"

	RheumatologySystem    ID = "rheumatology_system"
	RheumatologyAnalysis  ID = "rheumatology_analysis"
	RheumatologyChecklist ID = "rheumatology_checklist"

	DataAnalysisSystem    ID = "data_analysis_system"
	DataAnalysisAnalysis  ID = "data_analysis_analysis"
	DataAnalysisChecklist ID = "data_analysis_checklist"
)

// registry maps prompt IDs to paths relative to the templates root. Editors
// add or replace markdown files and register them here.
var registry = map[ID]string{
	SystemBase: "system/base.md",

	CaseSummary: "tasks/case_summary.md",
	RAGQuery:    "tasks/rag_query.md",

	DiscussionRound: "agents/shared/discussion_round.md",

	CoordinatorSystem:   "agents/coordinator/system.md",
	CoordinatorAnalysis: "agents/coordinator/analysis.md",
	ConflictDetection:   "agents/coordinator/conflict_detection.md",
	ConsensusEvaluation: "agents/coordinator/consensus_evaluation.md",
	FinalCoordination:   "agents/coordinator/final_coordination.md",

	PulmonologySystem:    "agents/pulmonology/system.md",
	PulmonologyAnalysis:  "agents/pulmonology/analysis.md",
	PulmonologyChecklist: "agents/pulmonology/checklist.md",

	RadiologySystem:    "agents/radiology/system.md",
	RadiologyAnalysis:  "agents/radiology/analysis.md",
	RadiologyChecklist: "agents/radiology/checklist.md",

	PathologySystem:    "agents/pathology/system.md",
	PathologyAnalysis:  "agents/pathology/analysis.md",
	PathologyChecklist: "agents/pathology/checklist.md",

	RheumatologySystem:    "agents/rheumatology/system.md",
	RheumatologyAnalysis:  "agents/rheumatology/analysis.md",
	RheumatologyChecklist: "agents/rheumatology/checklist.md",

	DataAnalysisSystem:    "agents/data_analysis/system.md",
	DataAnalysisAnalysis:  "agents/data_analysis/analysis.md",
	DataAnalysisChecklist: "agents/data_analysis/checklist.md",
}

// specialtyPrompts maps each specialist role to its prompt IDs.
var specialtyPrompts = map[models.Specialty]struct {
	System    ID
	Analysis  ID
	Checklist ID
}{
	models.SpecialtyPulmonology:  {PulmonologySystem, PulmonologyAnalysis, PulmonologyChecklist},
	models.SpecialtyRadiology:    {RadiologySystem, RadiologyAnalysis, RadiologyChecklist},
	models.SpecialtyPathology:    {PathologySystem, PathologyAnalysis, PathologyChecklist},
	models.SpecialtyRheumatology: {RheumatologySystem, RheumatologyAnalysis, RheumatologyChecklist},
	models.SpecialtyDataAnalysis: {DataAnalysisSystem, DataAnalysisAnalysis, DataAnalysisChecklist},
}

// SystemFor returns the system prompt ID for a specialist role.
func SystemFor(s models.Specialty) (ID, bool) {
	if s == models.SpecialtyCoordinator {
		return CoordinatorSystem, true
	}
	p, ok := specialtyPrompts[s]
	return p.System, ok
}

// AnalysisFor returns the individual-analysis prompt ID for a specialist role.
func AnalysisFor(s models.Specialty) (ID, bool) {
	p, ok := specialtyPrompts[s]
	return p.Analysis, ok
}

// ChecklistFor returns the checklist prompt ID for a specialist role.
func ChecklistFor(s models.Specialty) (ID, bool) {
	p, ok := specialtyPrompts[s]
	return p.Checklist, ok
}
