package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/bakeoff/internal/orchestrator"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// maxLogLines is how many activity entries the view keeps on screen.
const maxLogLines = 8

// CandidatePhase is where a candidate is in its round.
type CandidatePhase int

const (
	PhasePending CandidatePhase = iota
	PhaseWorkspaceReady
	PhaseValidating
	PhaseDone
)

// CandidateRow is the display state of one candidate.
type CandidateRow struct {
	ID       int
	Phase    CandidatePhase
	Status   models.ValidationStatus
	Message  string
	Duration time.Duration
	Winner   bool
}

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Event     string
	Message   string
}

// EventMsg wraps an orchestrator event for the view.
type EventMsg struct {
	Event orchestrator.RoundEvent
}

// DoneMsg is sent when the round has returned.
type DoneMsg struct {
	Report *models.RoundReport
	Err    error
}

// RoundApp is the bubbletea model for a round.
type RoundApp struct {
	roundID  string
	target   string
	rows     map[int]*CandidateRow
	logs     []LogEntry
	spinner  spinner.Model
	started  time.Time
	outcome  models.RoundOutcome
	err      error
	done     bool
	quitting bool
	width    int

	headerStyle  lipgloss.Style
	labelStyle   lipgloss.Style
	pendingStyle lipgloss.Style
	successStyle lipgloss.Style
	failStyle    lipgloss.Style
	winnerStyle  lipgloss.Style
	logTimeStyle lipgloss.Style
	logStyle     lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewRoundApp creates a RoundApp for the given target.
func NewRoundApp(target string) *RoundApp {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &RoundApp{
		target:  target,
		rows:    make(map[int]*CandidateRow),
		spinner: s,
		width:   80,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		failStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		winnerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("34")).
			Bold(true).
			Padding(0, 1),

		logTimeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		logStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *RoundApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *RoundApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
		a.apply(msg.Event)

	case DoneMsg:
		a.done = true
		a.err = msg.Err
		if msg.Report != nil {
			a.outcome = msg.Report.Outcome
			for _, res := range msg.Report.Results {
				a.complete(res.CandidateID, res.Status, res.Diagnostic, res.Duration)
			}
			if msg.Report.Winner != nil {
				a.row(msg.Report.Winner.CandidateID).Winner = true
			}
		}
		return a, tea.Quit
	}

	return a, nil
}

// apply folds one event into the view state.
func (a *RoundApp) apply(ev orchestrator.RoundEvent) {
	switch ev.Type {
	case orchestrator.EventRoundStarted:
		a.roundID = ev.RoundID
		a.started = ev.Timestamp
	case orchestrator.EventCandidatesGenerated:
		for id := 1; id <= ev.Count; id++ {
			a.row(id)
		}
	case orchestrator.EventWorkspaceCreated:
		if r := a.row(ev.CandidateID); r.Phase < PhaseWorkspaceReady {
			r.Phase = PhaseWorkspaceReady
		}
	case orchestrator.EventValidationStarted:
		if r := a.row(ev.CandidateID); r.Phase < PhaseValidating {
			r.Phase = PhaseValidating
		}
	case orchestrator.EventWorkspaceFailed, orchestrator.EventValidationCompleted:
		msg := ev.Message
		if ev.Error != nil {
			msg = ev.Error.Error()
		}
		status := ev.Status
		if ev.Type == orchestrator.EventWorkspaceFailed {
			status = models.StatusFileError
		}
		a.complete(ev.CandidateID, status, msg, ev.Duration)
	case orchestrator.EventWinnerSelected:
		a.row(ev.CandidateID).Winner = true
	case orchestrator.EventRoundDone:
		a.outcome = ev.Outcome
	}

	a.log(ev)
}

func (a *RoundApp) complete(id int, status models.ValidationStatus, msg string, d time.Duration) {
	r := a.row(id)
	r.Phase = PhaseDone
	r.Status = status
	r.Message = firstLine(msg)
	if d > 0 {
		r.Duration = d
	}
}

func (a *RoundApp) row(id int) *CandidateRow {
	r, ok := a.rows[id]
	if !ok {
		r = &CandidateRow{ID: id}
		a.rows[id] = r
	}
	return r
}

func (a *RoundApp) log(ev orchestrator.RoundEvent) {
	msg := ev.Message
	if ev.CandidateID > 0 {
		msg = fmt.Sprintf("#%d %s", ev.CandidateID, msg)
	}
	if ev.Error != nil {
		msg = strings.TrimSpace(msg + " " + firstLine(ev.Error.Error()))
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	a.logs = append(a.logs, LogEntry{Timestamp: ts, Event: string(ev.Type), Message: strings.TrimSpace(msg)})
	if len(a.logs) > maxLogLines {
		a.logs = a.logs[len(a.logs)-maxLogLines:]
	}
}

// Rows returns the candidate rows ordered by ID.
func (a *RoundApp) Rows() []CandidateRow {
	rows := make([]CandidateRow, 0, len(a.rows))
	for _, r := range a.rows {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// Logs returns the retained activity log.
func (a *RoundApp) Logs() []LogEntry {
	return a.logs
}

// Outcome returns the round outcome, empty until the round closes.
func (a *RoundApp) Outcome() models.RoundOutcome {
	return a.outcome
}

// View implements tea.Model.
func (a *RoundApp) View() string {
	if a.quitting && !a.done {
		return "Round view closed; the round keeps running.\n"
	}

	var b strings.Builder

	title := "=== bakeoff: " + a.target + " ==="
	b.WriteString(a.headerStyle.Render(title))
	b.WriteString("\n")
	if a.roundID != "" {
		b.WriteString(a.labelStyle.Render("Round:"))
		b.WriteString(a.roundID)
		if !a.started.IsZero() && !a.done {
			b.WriteString(a.hintStyle.Render(fmt.Sprintf("  %s", time.Since(a.started).Round(time.Second))))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	rows := a.Rows()
	if len(rows) == 0 {
		b.WriteString(a.spinner.View() + " generating candidates\n")
	}
	for _, r := range rows {
		b.WriteString(a.renderRow(r))
		b.WriteString("\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Render("Activity"))
		b.WriteString("\n")
		for _, e := range a.logs {
			ts := a.logTimeStyle.Render(e.Timestamp.Format("15:04:05"))
			ev := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Width(22).Render(e.Event)
			b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, ev, a.logStyle.Render(e.Message)))
		}
	}

	b.WriteString("\n")
	switch {
	case a.done && a.err != nil:
		b.WriteString(a.failStyle.Render(fmt.Sprintf("Error: %v", a.err)))
	case a.done:
		b.WriteString(a.successStyle.Render(fmt.Sprintf("Round finished: %s", a.outcome)))
	default:
		b.WriteString(a.hintStyle.Render("Press q to hide this view"))
	}
	b.WriteString("\n")

	return b.String()
}

func (a *RoundApp) renderRow(r CandidateRow) string {
	label := fmt.Sprintf("  candidate %-3d", r.ID)

	var status string
	switch r.Phase {
	case PhasePending:
		status = a.pendingStyle.Render("pending")
	case PhaseWorkspaceReady:
		status = a.pendingStyle.Render("workspace ready")
	case PhaseValidating:
		status = a.spinner.View() + " validating"
	case PhaseDone:
		if r.Status == models.StatusSuccess {
			status = a.successStyle.Render("✓ " + r.Status.String())
		} else {
			status = a.failStyle.Render("✗ " + r.Status.String())
		}
		if r.Duration > 0 {
			status += a.pendingStyle.Render(fmt.Sprintf(" (%s)", r.Duration.Round(time.Millisecond)))
		}
		if r.Message != "" && r.Status != models.StatusSuccess {
			status += " " + a.logStyle.Render(truncate(r.Message, a.width-40))
		}
	}

	if r.Winner {
		status += " " + a.winnerStyle.Render("WINNER")
	}
	return label + status
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
