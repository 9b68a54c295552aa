package main

import (
	"fmt"
	"log"

	"github.com/consilium-health/consilium/internal/agent"
	"github.com/consilium-health/consilium/internal/config"
	"github.com/consilium-health/consilium/internal/council"
	"github.com/consilium-health/consilium/internal/export"
	"github.com/consilium-health/consilium/internal/knowledge"
	"github.com/consilium-health/consilium/internal/llm"
	"github.com/consilium-health/consilium/internal/prompt"
	"github.com/consilium-health/consilium/internal/state"
	"github.com/consilium-health/consilium/pkg/models"
)

// stack holds the wired application components shared by run and serve.
type stack struct {
	client       *llm.Client
	prompts      *prompt.Store
	kb           *knowledge.Base
	roster       *agent.Roster
	orchestrator *council.Orchestrator
	db           *state.DB
	exporter     *export.Exporter
}

// buildStack wires the full discussion stack from config. The session store
// is optional: a failure to open it degrades to an unsaved session with a
// warning.
func buildStack(cfg *config.Config, participants []string) (*stack, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	prompts := prompt.NewStore(cfg.Prompts.Dir)
	if cfg.Prompts.Watch {
		if err := prompts.Watch(); err != nil {
			log.Printf("prompt watch disabled: %v", err)
		}
	}

	kb, err := knowledge.NewBase(cfg.Knowledge)
	if err != nil {
		prompts.Close()
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}

	roster, err := agent.NewRoster(parseParticipants(participants), client, prompts, kb)
	if err != nil {
		prompts.Close()
		kb.Close()
		return nil, err
	}

	db, err := state.Open(state.DefaultDBPath())
	if err != nil {
		log.Printf("session store unavailable: %v", err)
		db = nil
	}

	return &stack{
		client:  client,
		prompts: prompts,
		kb:      kb,
		roster:  roster,
		orchestrator: council.New(roster, council.Config{
			MaxRounds:          cfg.Discussion.MaxRounds,
			ConsensusThreshold: cfg.Discussion.ConsensusThreshold,
		}),
		db:       db,
		exporter: export.New(cfg.Export.Dir),
	}, nil
}

// parseParticipants converts flag values to specialties. Unknown names are
// logged and skipped.
func parseParticipants(names []string) []models.Specialty {
	var out []models.Specialty
	for _, name := range names {
		s, ok := models.ParseSpecialty(name)
		if !ok {
			log.Printf("unknown specialty %q, skipping", name)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Close releases the stack's resources.
func (s *stack) Close() {
	s.prompts.Close()
	if s.kb != nil {
		s.kb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
