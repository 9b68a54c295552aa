// Package tui provides the live terminal view of a running MDT discussion.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/consilium-health/consilium/internal/council"
	"github.com/consilium-health/consilium/pkg/models"
)

// EventMsg wraps a council event for the TUI.
type EventMsg struct {
	Event council.Event
}

// StreamClosedMsg signals that the event stream has ended.
type StreamClosedMsg struct{}

// agentView tracks one agent's display state.
type agentView struct {
	name      string
	specialty models.Specialty
	status    agentStatus
	tail      string
	errText   string
}

type agentStatus int

const (
	agentWaiting agentStatus = iota
	agentWorking
	agentDone
	agentFailed
)

// tailLimit bounds the streamed text shown per agent.
const tailLimit = 160

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	resultStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// App is the bubbletea model for a live discussion.
type App struct {
	// order preserves roster order for rendering.
	order  []string
	agents map[string]*agentView

	phase   council.Phase
	round   int
	logs    []string
	session *models.Session
	errText string

	spinner  spinner.Model
	width    int
	done     bool
	quitting bool
}

// New creates the App model.
func New() *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &App{
		agents:  make(map[string]*agentView),
		spinner: sp,
		width:   80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg.Event)
		if a.done {
			return a, tea.Quit
		}

	case StreamClosedMsg:
		a.done = true
		return a, tea.Quit
	}

	return a, nil
}

// handleEvent folds one discussion event into the display state.
func (a *App) handleEvent(e council.Event) {
	switch e.Type {
	case council.EventPhaseStart:
		a.phase = e.Phase
		a.round = 0
		if e.Message != "" {
			a.log(e.Message)
		}

	case council.EventPhaseSkip:
		a.log(e.Message)

	case council.EventPhaseComplete:
		if e.Conflict != nil {
			if e.Conflict.Detected {
				a.log(fmt.Sprintf("conflicts detected (initial consensus %.2f)", e.Conflict.ConsensusScore))
			} else {
				a.log("no conflicts detected")
			}
		}
		if e.Consensus != nil {
			reached := "not reached"
			if e.Consensus.Reached {
				reached = "reached"
			}
			a.log(fmt.Sprintf("consensus %s: %.2f (threshold %.2f)", reached, e.Consensus.Score, e.Consensus.Threshold))
		}

	case council.EventAgentStart:
		v := a.agent(e.Agent, e.Specialty)
		v.status = agentWorking
		v.tail = ""

	case council.EventAgentChunk:
		v := a.agent(e.Agent, e.Specialty)
		v.tail += e.Chunk
		if len(v.tail) > tailLimit {
			v.tail = v.tail[len(v.tail)-tailLimit:]
		}

	case council.EventAgentComplete:
		v := a.agent(e.Agent, e.Specialty)
		if e.Opinion != nil && e.Opinion.Failed() {
			v.status = agentFailed
			v.errText = e.Opinion.Err
		} else {
			v.status = agentDone
		}

	case council.EventRoundStart:
		a.round = e.Round
		for _, v := range a.agents {
			if v.specialty != models.SpecialtyCoordinator {
				v.status = agentWaiting
			}
		}

	case council.EventRoundComplete, council.EventRoundsComplete:
		a.log(e.Message)

	case council.EventSessionComplete:
		a.session = e.Session
		a.done = true

	case council.EventSessionError:
		a.errText = e.Err
		a.done = true
	}
}

func (a *App) agent(name string, specialty models.Specialty) *agentView {
	if v, ok := a.agents[name]; ok {
		return v
	}
	v := &agentView{name: name, specialty: specialty, status: agentWaiting}
	a.agents[name] = v
	a.order = append(a.order, name)
	return v
}

func (a *App) log(msg string) {
	if msg == "" {
		return
	}
	a.logs = append(a.logs, msg)
	if len(a.logs) > 8 {
		a.logs = a.logs[len(a.logs)-8:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Discussion view closed.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Consilium MDT Discussion"))
	b.WriteString("\n\n")

	phase := string(a.phase)
	if a.round > 0 {
		phase = fmt.Sprintf("%s (round %d)", phase, a.round)
	}
	b.WriteString(phaseStyle.Render("Phase: " + phase))
	b.WriteString("\n\n")

	for _, name := range a.order {
		v := a.agents[name]
		b.WriteString(a.renderAgent(v))
		b.WriteString("\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		for _, line := range a.logs {
			b.WriteString(dimStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	if a.session != nil && a.session.FinalResult != nil && !a.session.FinalResult.Failed() {
		b.WriteString("\n")
		b.WriteString(resultStyle.Width(min(a.width-2, 76)).Render(
			doneStyle.Render("Final conclusion") + "\n\n" + a.session.FinalResult.Response))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("session %s completed in %s",
			a.session.ID, a.session.Duration().Round(time.Second))))
		b.WriteString("\n")
	}
	if a.errText != "" {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("session failed: " + a.errText))
		b.WriteString("\n")
	}

	if !a.done {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderAgent(v *agentView) string {
	var marker, detail string
	switch v.status {
	case agentWorking:
		marker = a.spinner.View()
		detail = dimStyle.Render(lastLine(v.tail))
	case agentDone:
		marker = doneStyle.Render("✓")
	case agentFailed:
		marker = failStyle.Render("✗")
		detail = failStyle.Render(v.errText)
	default:
		marker = dimStyle.Render("·")
	}

	line := fmt.Sprintf("  %s %-22s", marker, v.specialty.DisplayName())
	if detail != "" {
		line += " " + detail
	}
	return line
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// Run renders the event stream until the session ends or the user quits.
func Run(ctx context.Context, events <-chan council.Event) error {
	app := New()
	p := tea.NewProgram(app, tea.WithContext(ctx))

	go func() {
		for e := range events {
			p.Send(EventMsg{Event: e})
		}
		p.Send(StreamClosedMsg{})
	}()

	_, err := p.Run()
	return err
}
