package council

import (
	"time"

	"github.com/consilium-health/consilium/pkg/models"
)

// EventType represents the type of discussion event.
type EventType string

const (
	// EventPhaseStart indicates a workflow phase has started.
	EventPhaseStart EventType = "phase_start"
	// EventPhaseSkip indicates a phase was skipped (no conflicts detected).
	EventPhaseSkip EventType = "phase_skip"
	// EventPhaseComplete indicates a phase finished.
	EventPhaseComplete EventType = "phase_complete"
	// EventAgentStart indicates an agent began producing its response.
	EventAgentStart EventType = "agent_start"
	// EventAgentChunk carries one streamed chunk of agent output.
	EventAgentChunk EventType = "agent_chunk"
	// EventAgentComplete carries an agent's finished opinion.
	EventAgentComplete EventType = "agent_complete"
	// EventRoundStart indicates a discussion round has started.
	EventRoundStart EventType = "round_start"
	// EventRoundComplete indicates a discussion round finished.
	EventRoundComplete EventType = "round_complete"
	// EventRoundsComplete indicates the rounds ended early on consensus.
	EventRoundsComplete EventType = "rounds_complete"
	// EventSessionComplete carries the finished session.
	EventSessionComplete EventType = "session_complete"
	// EventSessionError indicates the session aborted.
	EventSessionError EventType = "session_error"
)

// Event is one observable step of a running session. Front ends render the
// stream of these events live.
type Event struct {
	Type      EventType        `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Phase     Phase            `json:"phase,omitempty"`
	Agent     string           `json:"agent,omitempty"`
	Specialty models.Specialty `json:"specialty,omitempty"`
	Round     int              `json:"round,omitempty"`
	Message   string           `json:"message,omitempty"`
	Chunk     string           `json:"chunk,omitempty"`

	Opinion   *models.Opinion         `json:"opinion,omitempty"`
	Conflict  *models.ConflictReport  `json:"conflict,omitempty"`
	Consensus *models.ConsensusReport `json:"consensus,omitempty"`
	Session   *models.Session         `json:"session,omitempty"`

	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
