package live

import "github.com/charmbracelet/lipgloss"

var (
	textMutedColor     = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#696969"}
	borderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}
	statusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	statusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	accentColor        = lipgloss.AdaptiveColor{Light: "#5F5FD7", Dark: "#87AFFF"}

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	footerStyle  = lipgloss.NewStyle().Foreground(textMutedColor)
	createdStyle = lipgloss.NewStyle().Foreground(statusSuccessColor)
	updatedStyle = lipgloss.NewStyle().Foreground(statusWarningColor)
	frameStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderDefaultColor).
			Padding(0, 1)
)
