package agent

import (
	"fmt"

	"github.com/consilium-health/consilium/internal/knowledge"
	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/pkg/models"
)

// Roster is the set of agents taking part in one session.
type Roster struct {
	Specialists []*Specialist
	Coordinator *Coordinator
}

// NewRoster builds the agents for the given participants. An empty
// participant list means all specialist roles take part.
func NewRoster(participants []models.Specialty, completer llm.Completer, prompts *prompt.Store, kb *knowledge.Base) (*Roster, error) {
	if len(participants) == 0 {
		participants = models.Specialists()
	}

	seen := make(map[models.Specialty]struct{})
	roster := &Roster{Coordinator: NewCoordinator(completer, prompts)}

	for _, specialty := range participants {
		if specialty == models.SpecialtyCoordinator {
			continue
		}
		if _, dup := seen[specialty]; dup {
			return nil, fmt.Errorf("duplicate participant %q", specialty)
		}
		seen[specialty] = struct{}{}

		specialist, err := NewSpecialist(specialty, completer, prompts, kb)
		if err != nil {
			return nil, err
		}
		roster.Specialists = append(roster.Specialists, specialist)
	}

	if len(roster.Specialists) == 0 {
		return nil, fmt.Errorf("no specialist participants")
	}
	return roster, nil
}

// Participants returns the specialist roles in roster order.
func (r *Roster) Participants() []models.Specialty {
	out := make([]models.Specialty, len(r.Specialists))
	for i, s := range r.Specialists {
		out[i] = s.Specialty()
	}
	return out
}
