// Package ui renders the live runtime view for strand watch.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Sample is one observation of runtime state, produced by the driver.
type Sample struct {
	NowMs   uint64
	Ready   int
	Waiting int
	Done    int
	Leaves  int
	Roots   int
	// TopLeaves holds resolved symbol names of suspended-leaf frames,
	// capped by the producer.
	TopLeaves []string
}

type sampleMsg Sample
type doneMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	leafStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
)

type watchModel struct {
	title   string
	samples <-chan Sample
	spinner spinner.Model
	last    Sample
	seen    int
	done    bool
}

// NewWatchModel returns a Bubble Tea model that renders live task and
// suspended-leaf counts from the sample channel until it closes.
func NewWatchModel(title string, samples <-chan Sample) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	return &watchModel{
		title:   title,
		samples: samples,
		spinner: sp,
	}
}

func listen(samples <-chan Sample) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-samples
		if !ok {
			return doneMsg{}
		}
		return sampleMsg(s)
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listen(m.samples))
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sampleMsg:
		m.last = Sample(msg)
		m.seen++
		return m, listen(m.samples)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	status := m.spinner.View() + " running"
	if m.done {
		status = doneStyle.Render("✓ idle")
	}
	sb.WriteString(status)
	sb.WriteString(fmt.Sprintf("  %s %d\n\n", labelStyle.Render("samples:"), m.seen))

	s := m.last
	sb.WriteString(fmt.Sprintf("%s %dms\n", labelStyle.Render("executor time:"), s.NowMs))
	sb.WriteString(fmt.Sprintf("%s ready=%d waiting=%d done=%d\n",
		labelStyle.Render("tasks:"), s.Ready, s.Waiting, s.Done))
	sb.WriteString(fmt.Sprintf("%s roots=%d leaves=%d\n",
		labelStyle.Render("stacks:"), s.Roots, s.Leaves))

	if len(s.TopLeaves) > 0 {
		sb.WriteString("\n" + labelStyle.Render("suspended leaves:") + "\n")
		for _, name := range s.TopLeaves {
			sb.WriteString("  " + leafStyle.Render(runewidth.Truncate(name, 60, "…")) + "\n")
		}
	}

	sb.WriteString("\n" + labelStyle.Render("press q to quit") + "\n")
	return sb.String()
}
