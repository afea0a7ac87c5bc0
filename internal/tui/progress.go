// Package tui renders an interactive progress view for the compute command,
// fed by the orchestrator's pass events.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/mandelgrid/internal/grid"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// passMsg carries one orchestrator event into the update loop.
type passMsg grid.Event

// finishedMsg reports the computation goroutine's outcome.
type finishedMsg struct{ err error }

type model struct {
	bar   progress.Model
	total int

	pass      int
	budget    int
	escaped   int
	remaining int

	finished bool
	err      error
}

func newModel(total int) model {
	return model{
		bar:       progress.New(progress.WithDefaultGradient()),
		total:     total,
		remaining: total,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// The computation keeps running; only the display stops.
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4
		return m, nil

	case passMsg:
		if !msg.Done {
			m.pass = msg.Pass
			m.budget = msg.Budget
		}
		m.escaped = msg.Escaped
		m.remaining = msg.Remaining
		return m, m.bar.SetPercent(m.percent())

	case finishedMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Sequence(m.bar.SetPercent(m.percent()), tea.Quit)

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.total-m.remaining) / float64(m.total)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("mandelgrid compute"))
	b.WriteByte('\n')
	b.WriteString(m.bar.View())
	b.WriteByte('\n')
	b.WriteString(statStyle.Render(fmt.Sprintf(
		"pass %d  budget %d  escaped %d/%d  pending %d",
		m.pass, m.budget, m.escaped, m.total, m.remaining)))
	b.WriteByte('\n')
	if m.finished {
		if m.err != nil {
			b.WriteString(failedStyle.Render("failed: " + m.err.Error()))
		} else {
			b.WriteString(doneStyle.Render("done"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Run drives compute under the progress display. The observe callback handed
// to compute forwards orchestrator events into the UI; Run returns compute's
// error once both the computation and the display have stopped.
func Run(total int, compute func(observe func(grid.Event)) error) error {
	p := tea.NewProgram(newModel(total))

	errCh := make(chan error, 1)
	go func() {
		err := compute(func(ev grid.Event) { p.Send(passMsg(ev)) })
		errCh <- err
		p.Send(finishedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return <-errCh
}
