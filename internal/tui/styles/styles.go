package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple (violet-400)
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red (red-400)
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray (gray-500)
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Camera status colors
	CameraDetached = lipgloss.Color("#9CA3AF") // Gray
	CameraStarting = lipgloss.Color("#60A5FA") // Blue
	CameraActive   = lipgloss.Color("#10B981") // Green
	CameraBlocked  = lipgloss.Color("#F87171") // Red

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Header
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// Field label / value pairs
	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(16)

	Value = lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true)

	// Inline field error under an input
	FieldError = lipgloss.NewStyle().
			Foreground(ErrorColor).
			PaddingLeft(2)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	// Status badge styles
	StatusBadge = lipgloss.NewStyle().
			Padding(0, 1).
			MarginRight(1)

	// Error message
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Success message
	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Warning message
	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Info message
	InfoMsg = lipgloss.NewStyle().
		Foreground(BlueColor)

	// Feedback banner
	Banner = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		PaddingLeft(1).
		MarginTop(1)
)

// CameraColor returns the color for a camera status.
func CameraColor(status string) lipgloss.Color {
	switch status {
	case "starting":
		return CameraStarting
	case "active":
		return CameraActive
	case "blocked":
		return CameraBlocked
	default:
		return CameraDetached
	}
}

// CameraIcon returns the indicator for a camera status.
func CameraIcon(status string) string {
	switch status {
	case "starting":
		return "◌"
	case "active":
		return "●"
	case "blocked":
		return "✗"
	default:
		return "○"
	}
}

// BannerStyle returns the feedback banner style for a submission status.
func BannerStyle(status string) lipgloss.Style {
	switch status {
	case "pending":
		return Banner.BorderForeground(BlueColor).Foreground(BlueColor)
	case "succeeded":
		return Banner.BorderForeground(SecondaryColor).Foreground(SecondaryColor).Bold(true)
	case "failed":
		return Banner.BorderForeground(ErrorColor).Foreground(ErrorColor).Bold(true)
	default:
		return Banner.BorderForeground(MutedColor).Foreground(MutedColor)
	}
}
