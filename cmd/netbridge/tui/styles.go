package tui

import "github.com/charmbracelet/lipgloss"

// Shared colors.
var (
	AccentColor = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	DimColor    = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	WarnColor   = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}
	GreenColor  = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	AmberColor  = lipgloss.AdaptiveColor{Light: "#D4A017", Dark: "#FFD866"}
)

// Shared styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(WarnColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	TimeStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	KindStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	AttrKeyStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	StatusStyle = lipgloss.NewStyle().
			Foreground(AmberColor)
)

// kindStyles colors event kinds that deserve attention; everything else
// uses KindStyle.
var kindStyles = map[string]lipgloss.Style{
	"error":    ErrorStyle,
	"removed":  ErrorStyle,
	"close":    ErrorStyle,
	"found":    lipgloss.NewStyle().Foreground(GreenColor).Bold(true),
	"resolved": lipgloss.NewStyle().Foreground(GreenColor).Bold(true),
	"connack":  lipgloss.NewStyle().Foreground(GreenColor).Bold(true),
	"progress": lipgloss.NewStyle().Foreground(AmberColor),
	"debug":    HelpStyle,
	"log":      HelpStyle,
}

func styleForKind(kind string) lipgloss.Style {
	if s, ok := kindStyles[kind]; ok {
		return s
	}
	return KindStyle
}
