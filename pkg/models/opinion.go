package models

import "time"

// Opinion is a single agent response within a session phase.
type Opinion struct {
	// Agent is the display name of the agent that produced the opinion.
	Agent string `json:"agent"`
	// Specialty is the role key of the agent.
	Specialty Specialty `json:"specialty"`
	// Response is the full analysis text.
	Response string `json:"response"`
	// Round is the discussion round number, 0 outside multi-round discussion.
	Round int `json:"round,omitempty"`
	// Confidence is the extracted confidence estimate in [0,1].
	Confidence float64 `json:"confidence"`
	// Err carries the failure message when the agent call did not succeed.
	Err string `json:"error,omitempty"`
	// Timestamp is when the opinion was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Failed reports whether the opinion records an agent failure.
func (o Opinion) Failed() bool { return o.Err != "" }
