package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	Primary = lipgloss.Color("#DC2626")
	Green   = lipgloss.Color("#10B981")
	Red     = lipgloss.Color("#EF4444")
	Yellow  = lipgloss.Color("#F59E0B")
	Cyan    = lipgloss.Color("#06B6D4")
	Blue    = lipgloss.Color("#3B82F6")
	Dim     = lipgloss.Color("#6B7280")
	White   = lipgloss.Color("#F9FAFB")

	Subtitle = lipgloss.NewStyle().
			Foreground(Dim).
			Italic(true)

	Bold = lipgloss.NewStyle().Bold(true).Foreground(White)

	Healthy   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Unhealthy = lipgloss.NewStyle().Foreground(Red).Bold(true)
	Warning   = lipgloss.NewStyle().Foreground(Yellow)
	Info      = lipgloss.NewStyle().Foreground(Blue)

	DimText = lipgloss.NewStyle().Foreground(Dim)
	Accent  = lipgloss.NewStyle().Foreground(Cyan)

	// Status indicators
	DotHealthy   = Healthy.Render("●")
	DotUnhealthy = Unhealthy.Render("●")
	DotWarning   = Warning.Render("●")
	DotNew       = Info.Render("●")
	DotDim       = DimText.Render("●")

	TagBadge = lipgloss.NewStyle().Foreground(Cyan)

	Banner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Dim).
			PaddingRight(2)

	ErrorBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Foreground(Red).
			Padding(0, 1).
			MarginTop(1)

	SuccessBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Green).
			Foreground(Green).
			Padding(0, 1).
			MarginTop(1)

	// Key-value
	Key = lipgloss.NewStyle().Foreground(Dim).Width(16)
	Val = lipgloss.NewStyle().Foreground(White)
)

func HealthDot(healthy bool) string {
	if healthy {
		return DotHealthy
	}
	return DotUnhealthy
}

// CheckDot colors a check status: up, down, new, paused.
func CheckDot(status string) string {
	switch status {
	case "up":
		return DotHealthy
	case "down":
		return DotUnhealthy
	case "new":
		return DotNew
	case "paused":
		return DotWarning
	default:
		return DotDim
	}
}

// StatusText renders a check or alert status in its matching color. Padding
// around status is kept.
func StatusText(status string) string {
	switch strings.TrimSpace(status) {
	case "up", "sent":
		return Healthy.Render(status)
	case "down", "failed":
		return Unhealthy.Render(status)
	case "paused", "pending":
		return Warning.Render(status)
	case "new":
		return Info.Render(status)
	default:
		return DimText.Render(status)
	}
}
