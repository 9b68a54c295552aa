package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/consilium-health/consilium/internal/council"
	"github.com/consilium-health/consilium/pkg/models"
)

func send(t *testing.T, a *App, e council.Event) *App {
	t.Helper()
	model, _ := a.Update(EventMsg{Event: e})
	return model.(*App)
}

func TestAgentLifecycle(t *testing.T) {
	a := New()

	a = send(t, a, council.Event{Type: council.EventPhaseStart, Phase: council.PhaseIndividualAnalysis})
	a = send(t, a, council.Event{Type: council.EventAgentStart, Agent: "Pulmonologist", Specialty: models.SpecialtyPulmonology})
	a = send(t, a, council.Event{Type: council.EventAgentChunk, Agent: "Pulmonologist", Specialty: models.SpecialtyPulmonology, Chunk: "UIP pattern likely"})

	v := a.agents["Pulmonologist"]
	if v == nil || v.status != agentWorking {
		t.Fatalf("agent view = %+v", v)
	}
	if v.tail != "UIP pattern likely" {
		t.Errorf("tail = %q", v.tail)
	}

	op := models.Opinion{Agent: "Pulmonologist", Confidence: 0.8, Response: "done"}
	a = send(t, a, council.Event{Type: council.EventAgentComplete, Agent: "Pulmonologist",
		Specialty: models.SpecialtyPulmonology, Opinion: &op})
	if a.agents["Pulmonologist"].status != agentDone {
		t.Errorf("status = %v after complete", a.agents["Pulmonologist"].status)
	}
}

func TestAgentFailureShowsError(t *testing.T) {
	a := New()
	op := models.Opinion{Agent: "Radiologist", Err: "request timed out"}
	a = send(t, a, council.Event{Type: council.EventAgentComplete, Agent: "Radiologist",
		Specialty: models.SpecialtyRadiology, Opinion: &op})

	v := a.agents["Radiologist"]
	if v.status != agentFailed || v.errText != "request timed out" {
		t.Errorf("view = %+v", v)
	}
	if !strings.Contains(a.View(), "request timed out") {
		t.Error("error not rendered")
	}
}

func TestTailIsBounded(t *testing.T) {
	a := New()
	a = send(t, a, council.Event{Type: council.EventAgentStart, Agent: "Pathologist", Specialty: models.SpecialtyPathology})
	for i := 0; i < 50; i++ {
		a = send(t, a, council.Event{Type: council.EventAgentChunk, Agent: "Pathologist",
			Specialty: models.SpecialtyPathology, Chunk: "granuloma "})
	}
	if n := len(a.agents["Pathologist"].tail); n > tailLimit {
		t.Errorf("tail length = %d, want <= %d", n, tailLimit)
	}
}

func TestRoundResetsSpecialists(t *testing.T) {
	a := New()
	op := models.Opinion{Agent: "Pulmonologist", Response: "x"}
	a = send(t, a, council.Event{Type: council.EventAgentComplete, Agent: "Pulmonologist",
		Specialty: models.SpecialtyPulmonology, Opinion: &op})
	a = send(t, a, council.Event{Type: council.EventRoundStart, Round: 2})

	if a.round != 2 {
		t.Errorf("round = %d", a.round)
	}
	if a.agents["Pulmonologist"].status != agentWaiting {
		t.Error("specialist not reset for new round")
	}
}

func TestSessionCompleteQuits(t *testing.T) {
	a := New()
	session := &models.Session{
		ID:        "mdt_20260314_103000",
		Status:    models.SessionCompleted,
		StartTime: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 14, 10, 33, 0, 0, time.UTC),
		FinalResult: &models.Opinion{
			Agent: "MDT Coordinator", Response: "Diagnosis: IPF.", Confidence: 0.8,
		},
	}
	model, cmd := a.Update(EventMsg{Event: council.Event{Type: council.EventSessionComplete, Session: session}})
	a = model.(*App)

	if cmd == nil {
		t.Fatal("expected quit command")
	}
	view := a.View()
	if !strings.Contains(view, "Final conclusion") || !strings.Contains(view, "Diagnosis: IPF.") {
		t.Errorf("view missing final result:\n%s", view)
	}
}

func TestSessionErrorRendered(t *testing.T) {
	a := New()
	a = send(t, a, council.Event{Type: council.EventSessionError, Err: "context canceled"})
	if !a.done {
		t.Error("app should be done after session_error")
	}
	if !strings.Contains(a.View(), "session failed: context canceled") {
		t.Error("error not rendered")
	}
}

func TestQuitKey(t *testing.T) {
	a := New()
	model, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	a = model.(*App)
	if !a.quitting || cmd == nil {
		t.Error("q should quit")
	}
}
