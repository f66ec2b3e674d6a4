package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	keyHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	flashStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("237")).Bold(true)
	headerRowStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("33"))
	onStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	offStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true)
)

// heatShades go from an empty cell to the busiest one.
var heatShades = []lipgloss.Color{"236", "24", "25", "26", "27", "33", "39"}

func heatStyle(n, max int) lipgloss.Style {
	level := 0
	if n > 0 && max > 0 {
		level = 1 + (n*(len(heatShades)-2))/max
		if level >= len(heatShades) {
			level = len(heatShades) - 1
		}
	}
	return lipgloss.NewStyle().Background(heatShades[level]).Foreground(lipgloss.Color("231"))
}
