package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("61")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	stateRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))  // green
	stateExited  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")) // orange
	stateKilled  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")) // red
	stateNone    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")) // gray
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return stateRunning
	case "exited":
		return stateExited
	case "killed":
		return stateKilled
	default:
		return stateNone
	}
}
