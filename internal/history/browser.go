package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	browserTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	browserItemStyle = lipgloss.NewStyle().
				Padding(0, 0, 0, 4)

	browserSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	browserHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(1, 0, 0, 2)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type browserState int

const (
	stateList browserState = iota
	stateDetail
)

type browserModel struct {
	runs   []Run
	cursor int
	state  browserState
	detail viewport.Model
	width  int
	height int
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail = viewport.New(msg.Width-4, msg.Height-6)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.state == stateDetail {
				m.state = stateList
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.state == stateList && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.state == stateList && m.cursor < len(m.runs)-1 {
				m.cursor++
			}
		case "enter":
			if m.state == stateList && len(m.runs) > 0 {
				m.state = stateDetail
				m.detail.SetContent(renderRunDetail(m.runs[m.cursor]))
				m.detail.GotoTop()
			}
		case "esc":
			m.state = stateList
		default:
			if m.state == stateDetail {
				var cmd tea.Cmd
				m.detail, cmd = m.detail.Update(msg)
				return m, cmd
			}
		}
	}
	return m, nil
}

func (m browserModel) View() string {
	if m.state == stateDetail {
		return browserTitleStyle.Render("Run detail") + "\n" +
			m.detail.View() + "\n" +
			browserHintStyle.Render("esc/q back  ↑/↓ scroll")
	}

	s := browserTitleStyle.Render("Sync runs — newest first")
	s += "\n"

	if len(m.runs) == 0 {
		s += browserItemStyle.Render("No recorded runs.") + "\n"
	}

	for i, r := range m.runs {
		label := runLabel(r)
		if i == m.cursor {
			s += browserSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += browserItemStyle.Render(label) + "\n"
		}
	}

	s += browserHintStyle.Render("↑/↓/j/k navigate  enter detail  q quit")
	return s
}

func runLabel(r Run) string {
	status := okStyle.Render("ok")
	if !r.Success {
		status = failStyle.Render("fetch failed")
	} else if !r.Delivered {
		status = failStyle.Render("not delivered")
	}
	return fmt.Sprintf("%s  %-11s %3d jobs  %s",
		r.StartedAt.Local().Format("2006-01-02 15:04"),
		r.Method,
		r.JobCount,
		status,
	)
}

func renderRunDetail(r Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run ID:      %s\n", r.RunID)
	fmt.Fprintf(&b, "Source:      %s\n", r.Source)
	fmt.Fprintf(&b, "Strategy:    %s\n", r.Method)
	fmt.Fprintf(&b, "Jobs:        %d\n", r.JobCount)
	fmt.Fprintf(&b, "Fetch OK:    %v\n", r.Success)
	fmt.Fprintf(&b, "Delivered:   %v\n", r.Delivered)
	if r.StatusCode != 0 {
		fmt.Fprintf(&b, "HTTP status: %d\n", r.StatusCode)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error:       %s\n", r.Error)
	}
	fmt.Fprintf(&b, "Started:     %s\n", r.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(&b, "Duration:    %s\n", r.Duration)
	return b.String()
}

// RunBrowser shows an interactive browser over the recorded runs.
func RunBrowser(runs []Run) error {
	m := browserModel{runs: runs}
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}
