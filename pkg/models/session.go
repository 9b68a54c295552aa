package models

import "time"

// SessionStatus tracks the lifecycle of an MDT session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// ConflictReport is the coordinator's conflict-detection output.
type ConflictReport struct {
	Detected         bool      `json:"conflict_detected"`
	Analysis         string    `json:"conflict_analysis"`
	ConsensusScore   float64   `json:"consensus_score"`
	OpinionsAnalyzed int       `json:"opinions_analyzed"`
	Timestamp        time.Time `json:"timestamp"`
}

// ConsensusReport is the coordinator's consensus-evaluation output. The final
// score is the mean of the score extracted from the LLM evaluation and the
// lexical heuristic score.
type ConsensusReport struct {
	Score         float64   `json:"consensus_score"`
	Reached       bool      `json:"consensus_reached"`
	Threshold     float64   `json:"threshold"`
	Evaluation    string    `json:"evaluation"`
	LLMScore      float64   `json:"llm_score"`
	LexicalScore  float64   `json:"calculated_score"`
	OpinionsCount int       `json:"opinions_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Round is one completed round of multi-round discussion.
type Round struct {
	Number         int       `json:"round"`
	Opinions       []Opinion `json:"opinions"`
	ConsensusScore float64   `json:"consensus_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// Session is the complete record of one MDT discussion.
type Session struct {
	ID           string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	Case         Case          `json:"case_data"`
	Participants []Specialty   `json:"participants"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time,omitempty"`

	IndividualAnalysis []Opinion        `json:"individual_analysis,omitempty"`
	SharingDiscussion  []Opinion        `json:"sharing_discussion,omitempty"`
	Conflict           *ConflictReport  `json:"conflict_detection,omitempty"`
	Rounds             []Round          `json:"discussion_rounds,omitempty"`
	Consensus          *ConsensusReport `json:"consensus_evaluation,omitempty"`
	FinalResult        *Opinion         `json:"final_result,omitempty"`

	MaxRounds          int     `json:"max_rounds"`
	ConsensusThreshold float64 `json:"consensus_threshold"`
}

// Duration returns the elapsed session time, zero while still active.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// CurrentOpinions returns the most recent complete set of specialist
// opinions: the last discussion round when rounds ran, otherwise the sharing
// discussion, otherwise the individual analyses.
func (s *Session) CurrentOpinions() []Opinion {
	if n := len(s.Rounds); n > 0 {
		return s.Rounds[n-1].Opinions
	}
	if len(s.SharingDiscussion) > 0 {
		return s.SharingDiscussion
	}
	return s.IndividualAnalysis
}

// AllOpinions returns every specialist opinion recorded so far, in phase
// order. Used for conflict detection and consensus evaluation, which consider
// the full discussion history.
func (s *Session) AllOpinions() []Opinion {
	var out []Opinion
	out = append(out, s.IndividualAnalysis...)
	out = append(out, s.SharingDiscussion...)
	for _, r := range s.Rounds {
		out = append(out, r.Opinions...)
	}
	return out
}
