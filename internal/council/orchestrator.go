package council

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/consilium-health/consilium/internal/agent"
	"github.com/consilium-health/consilium/pkg/models"
)

// Config holds the discussion knobs.
type Config struct {
	// MaxRounds bounds the multi-round discussion phase.
	MaxRounds int
	// ConsensusThreshold is the score at or above which consensus is
	// reached and further rounds stop.
	ConsensusThreshold float64
}

// Orchestrator runs the discussion workflow: individual analysis, sharing,
// conflict detection, bounded multi-round discussion, consensus evaluation
// and final coordination.
type Orchestrator struct {
	roster    *agent.Roster
	maxRounds int
	threshold float64
	now       func() time.Time
}

// New creates an orchestrator. Zero config fields fall back to 3 rounds and
// a 0.75 threshold.
func New(roster *agent.Roster, cfg Config) *Orchestrator {
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 3
	}
	threshold := cfg.ConsensusThreshold
	if threshold <= 0 {
		threshold = 0.75
	}
	return &Orchestrator{
		roster:    roster,
		maxRounds: maxRounds,
		threshold: threshold,
		now:       time.Now,
	}
}

// NewSessionID derives the session identifier from its start time.
func NewSessionID(t time.Time) string {
	return "mdt_" + t.Format("20060102_150405")
}

// Run executes a full session and returns the finished record. The returned
// session is also populated (with failed status) when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context, c models.Case) (*models.Session, error) {
	return o.run(ctx, c, func(Event) {})
}

// RunStream executes a full session, emitting events as it goes. The channel
// closes when the session ends; the final event is session_complete carrying
// the session, or session_error.
func (o *Orchestrator) RunStream(ctx context.Context, c models.Case) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		emit := func(e Event) {
			select {
			case ch <- e:
			case <-ctx.Done():
			}
		}
		if _, err := o.run(ctx, c, emit); err != nil {
			log.Printf("council: session failed: %v", err)
		}
	}()
	return ch
}

func (o *Orchestrator) run(ctx context.Context, c models.Case, emit func(Event)) (*models.Session, error) {
	start := o.now()
	session := &models.Session{
		ID:                 NewSessionID(start),
		Status:             models.SessionActive,
		Case:               models.ParseCase(c),
		Participants:       o.roster.Participants(),
		StartTime:          start,
		MaxRounds:          o.maxRounds,
		ConsensusThreshold: o.threshold,
	}

	event := func(e Event) {
		e.SessionID = session.ID
		e.Timestamp = o.now()
		emit(e)
	}

	fail := func(err error) (*models.Session, error) {
		session.Status = models.SessionFailed
		session.EndTime = o.now()
		event(Event{Type: EventSessionError, Err: err.Error()})
		return session, err
	}

	event(Event{Type: EventPhaseStart, Phase: PhaseInitialization,
		Message: fmt.Sprintf("MDT session %s started with %d specialists", session.ID, len(o.roster.Specialists))})

	// Phase: individual analysis, all specialists in parallel
	event(Event{Type: EventPhaseStart, Phase: PhaseIndividualAnalysis})
	session.IndividualAnalysis = o.fanOut(ctx, event, PhaseIndividualAnalysis, func(sp *agent.Specialist, onChunk func(string)) models.Opinion {
		return sp.AnalyzeStream(ctx, session.Case, nil, onChunk)
	})
	event(Event{Type: EventPhaseComplete, Phase: PhaseIndividualAnalysis})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Phase: sharing discussion, each specialist sees the others' analyses
	event(Event{Type: EventPhaseStart, Phase: PhaseSharingDiscussion})
	session.SharingDiscussion = o.fanOut(ctx, event, PhaseSharingDiscussion, func(sp *agent.Specialist, onChunk func(string)) models.Opinion {
		others := withoutSpecialty(session.IndividualAnalysis, sp.Specialty())
		return sp.AnalyzeStream(ctx, session.Case, others, onChunk)
	})
	event(Event{Type: EventPhaseComplete, Phase: PhaseSharingDiscussion})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Phase: conflict detection by the coordinator
	coordinator := o.roster.Coordinator
	event(Event{Type: EventPhaseStart, Phase: PhaseConflictDetection})
	event(Event{Type: EventAgentStart, Phase: PhaseConflictDetection, Agent: coordinator.Name(), Specialty: models.SpecialtyCoordinator})
	session.Conflict = coordinator.DetectConflicts(ctx, session.Case, session.CurrentOpinions())
	event(Event{Type: EventAgentComplete, Phase: PhaseConflictDetection, Agent: coordinator.Name(),
		Specialty: models.SpecialtyCoordinator, Conflict: session.Conflict})
	event(Event{Type: EventPhaseComplete, Phase: PhaseConflictDetection, Conflict: session.Conflict})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Phase: multi-round discussion, only when conflicts were detected
	if session.Conflict.Detected {
		event(Event{Type: EventPhaseStart, Phase: PhaseMultiRoundDiscussion})
		if err := o.discussionRounds(ctx, session, event); err != nil {
			return fail(err)
		}
		event(Event{Type: EventPhaseComplete, Phase: PhaseMultiRoundDiscussion})
	} else {
		event(Event{Type: EventPhaseSkip, Phase: PhaseMultiRoundDiscussion,
			Message: "no conflicts detected, skipping multi-round discussion"})
	}

	// Phase: consensus evaluation
	event(Event{Type: EventPhaseStart, Phase: PhaseConsensusEvaluation})
	event(Event{Type: EventAgentStart, Phase: PhaseConsensusEvaluation, Agent: coordinator.Name(), Specialty: models.SpecialtyCoordinator})
	session.Consensus = coordinator.EvaluateConsensus(ctx, session.Case, session.CurrentOpinions(), o.threshold)
	event(Event{Type: EventAgentComplete, Phase: PhaseConsensusEvaluation, Agent: coordinator.Name(),
		Specialty: models.SpecialtyCoordinator, Consensus: session.Consensus})
	event(Event{Type: EventPhaseComplete, Phase: PhaseConsensusEvaluation, Consensus: session.Consensus})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Phase: final coordination
	event(Event{Type: EventPhaseStart, Phase: PhaseFinalCoordination})
	event(Event{Type: EventAgentStart, Phase: PhaseFinalCoordination, Agent: coordinator.Name(), Specialty: models.SpecialtyCoordinator})
	final := coordinator.FinalCoordination(ctx, session.Case, session.AllOpinions(), session.Consensus, func(chunk string) {
		event(Event{Type: EventAgentChunk, Phase: PhaseFinalCoordination, Agent: coordinator.Name(),
			Specialty: models.SpecialtyCoordinator, Chunk: chunk})
	})
	session.FinalResult = &final
	event(Event{Type: EventAgentComplete, Phase: PhaseFinalCoordination, Agent: coordinator.Name(),
		Specialty: models.SpecialtyCoordinator, Opinion: &final})
	event(Event{Type: EventPhaseComplete, Phase: PhaseFinalCoordination})
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	session.Status = models.SessionCompleted
	session.EndTime = o.now()
	event(Event{Type: EventSessionComplete, Phase: PhaseCompleted, Session: session,
		Message: fmt.Sprintf("session completed in %s", session.Duration().Round(time.Second))})
	return session, nil
}

// fanOut runs fn for every specialist concurrently and returns the opinions
// in roster order.
func (o *Orchestrator) fanOut(ctx context.Context, event func(Event), phase Phase, fn func(*agent.Specialist, func(string)) models.Opinion) []models.Opinion {
	specialists := o.roster.Specialists
	opinions := make([]models.Opinion, len(specialists))

	var wg sync.WaitGroup
	for i, sp := range specialists {
		wg.Add(1)
		go func(i int, sp *agent.Specialist) {
			defer wg.Done()
			event(Event{Type: EventAgentStart, Phase: phase, Agent: sp.Name(), Specialty: sp.Specialty()})
			op := fn(sp, func(chunk string) {
				event(Event{Type: EventAgentChunk, Phase: phase, Agent: sp.Name(), Specialty: sp.Specialty(), Chunk: chunk})
			})
			opinions[i] = op
			event(Event{Type: EventAgentComplete, Phase: phase, Agent: sp.Name(), Specialty: sp.Specialty(), Opinion: &op})
		}(i, sp)
	}
	wg.Wait()

	return opinions
}

// discussionRounds runs up to maxRounds sequential rounds, stopping early
// when the round's lexical consensus reaches the threshold.
func (o *Orchestrator) discussionRounds(ctx context.Context, session *models.Session, event func(Event)) error {
	for round := 1; round <= o.maxRounds; round++ {
		event(Event{Type: EventRoundStart, Phase: PhaseMultiRoundDiscussion, Round: round})

		var roundOpinions []models.Opinion
		for _, sp := range o.roster.Specialists {
			if err := ctx.Err(); err != nil {
				return err
			}

			// Each specialist sees earlier rounds plus this round so far.
			var history []models.Opinion
			for _, r := range session.Rounds {
				history = append(history, r.Opinions...)
			}
			history = append(history, withoutSpecialty(roundOpinions, sp.Specialty())...)
			if len(history) == 0 {
				history = withoutSpecialty(session.SharingDiscussion, sp.Specialty())
			}

			event(Event{Type: EventAgentStart, Phase: PhaseMultiRoundDiscussion, Round: round, Agent: sp.Name(), Specialty: sp.Specialty()})
			op := sp.DiscussRound(ctx, session.Case, history, round)
			roundOpinions = append(roundOpinions, op)
			event(Event{Type: EventAgentComplete, Phase: PhaseMultiRoundDiscussion, Round: round,
				Agent: sp.Name(), Specialty: sp.Specialty(), Opinion: &op})
		}

		score := agent.LexicalConsensus(responsesOf(roundOpinions))
		record := models.Round{
			Number:         round,
			Opinions:       roundOpinions,
			ConsensusScore: score,
			Timestamp:      o.now(),
		}
		session.Rounds = append(session.Rounds, record)

		event(Event{Type: EventRoundComplete, Phase: PhaseMultiRoundDiscussion, Round: round,
			Message: fmt.Sprintf("round %d consensus %.2f", round, score)})

		if score >= o.threshold {
			event(Event{Type: EventRoundsComplete, Phase: PhaseMultiRoundDiscussion, Round: round,
				Message: fmt.Sprintf("consensus reached after round %d", round)})
			break
		}
	}
	return nil
}

func withoutSpecialty(opinions []models.Opinion, specialty models.Specialty) []models.Opinion {
	var out []models.Opinion
	for _, op := range opinions {
		if op.Specialty != specialty {
			out = append(out, op)
		}
	}
	return out
}

func responsesOf(opinions []models.Opinion) []string {
	var out []string
	for _, op := range opinions {
		if !op.Failed() && op.Response != "" {
			out = append(out, op.Response)
		}
	}
	return out
}
