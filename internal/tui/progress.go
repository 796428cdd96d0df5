// Package tui provides the terminal progress view for long fan-outs.
package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	defaultBarWidth = 48
	minBarWidth     = 10
	// labelWidth leaves room for the label and counters beside the bar.
	labelWidth = 32
)

// ProgressMsg reports the state of one fan-out.
type ProgressMsg struct {
	Label string
	Done  int
	Total int
}

type finishedMsg struct{}

type progressModel struct {
	bar     progress.Model
	label   string
	done    int
	total   int
	cancel  func()
	stopped bool
}

func newProgressModel(cancel func()) *progressModel {
	return &progressModel{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(defaultBarWidth),
			progress.WithoutPercentage(),
		),
		cancel: cancel,
	}
}

func (m *progressModel) Init() tea.Cmd { return nil }

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		// Workers report concurrently, so counts for one fan-out can arrive
		// out of order.
		if msg.Label == m.label && msg.Total == m.total && msg.Done < m.done {
			break
		}
		m.label, m.done, m.total = msg.Label, msg.Done, msg.Total
	case tea.WindowSizeMsg:
		m.bar.Width = clamp(defaultBarWidth, msg.Width-labelWidth-24, minBarWidth)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.stopped = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case finishedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m *progressModel) View() string {
	if m.stopped {
		return stoppedStyle.Render("Stopping after in-flight requests finish") + "\n"
	}
	if m.total == 0 {
		return helpStyle.Render("Waiting for work") + "\n"
	}

	label := labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, truncate(m.label, labelWidth)))
	counts := countStyle.Render(fmt.Sprintf("%s/%s", humanize.Comma(int64(m.done)), humanize.Comma(int64(m.total))))
	line := lipgloss.JoinHorizontal(lipgloss.Center, label, " ", m.bar.ViewAs(m.percent()), " ", counts)
	return lipgloss.JoinVertical(lipgloss.Left, line, helpStyle.Render("q stop")) + "\n"
}

var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("161")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Progress runs the progress view in the background.
type Progress struct {
	program *tea.Program
	done    chan struct{}
}

// StartProgress starts the view. cancel is called when the user presses q.
func StartProgress(cancel func(), opts ...tea.ProgramOption) *Progress {
	p := &Progress{
		program: tea.NewProgram(newProgressModel(cancel), opts...),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		if _, err := p.program.Run(); err != nil {
			slog.Warn("Progress view stopped", "error", err)
		}
	}()
	return p
}

// Report has the shape of detail.ProgressFunc.
func (p *Progress) Report(label string, done, total int) {
	p.program.Send(ProgressMsg{Label: label, Done: done, Total: total})
}

// Stop closes the view and waits for the terminal to be restored.
func (p *Progress) Stop() {
	p.program.Send(finishedMsg{})
	<-p.done
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
