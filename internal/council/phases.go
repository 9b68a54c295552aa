// Package council runs the multi-phase MDT discussion workflow over a roster
// of agents.
package council

// Phase identifies one stage of the discussion workflow.
type Phase string

const (
	PhaseInitialization       Phase = "initialization"
	PhaseIndividualAnalysis   Phase = "individual_analysis"
	PhaseSharingDiscussion    Phase = "sharing_discussion"
	PhaseConflictDetection    Phase = "conflict_detection"
	PhaseMultiRoundDiscussion Phase = "multi_round_discussion"
	PhaseConsensusEvaluation  Phase = "consensus_evaluation"
	PhaseFinalCoordination    Phase = "final_coordination"
	PhaseCompleted            Phase = "completed"
)

// PhaseMeta describes the execution strategy of a phase. Phases not in the
// registry run sequentially without streaming.
type PhaseMeta struct {
	// Parallel phases fan the specialists out concurrently.
	Parallel bool
	// Stream phases emit per-chunk agent output.
	Stream bool
}

var phaseMeta = map[Phase]PhaseMeta{
	PhaseIndividualAnalysis:   {Parallel: true, Stream: true},
	PhaseSharingDiscussion:    {Parallel: true, Stream: true},
	PhaseConflictDetection:    {Parallel: false, Stream: true},
	PhaseMultiRoundDiscussion: {Parallel: false, Stream: true},
	PhaseConsensusEvaluation:  {Parallel: false, Stream: true},
	PhaseFinalCoordination:    {Parallel: false, Stream: true},
}

// Meta returns the execution strategy for a phase.
func Meta(p Phase) PhaseMeta {
	return phaseMeta[p]
}

// Sequence returns the workflow phases in execution order.
func Sequence() []Phase {
	return []Phase{
		PhaseInitialization,
		PhaseIndividualAnalysis,
		PhaseSharingDiscussion,
		PhaseConflictDetection,
		PhaseMultiRoundDiscussion,
		PhaseConsensusEvaluation,
		PhaseFinalCoordination,
		PhaseCompleted,
	}
}
