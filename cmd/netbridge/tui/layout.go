package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Pulse colors cycle through green brightness levels.
var pulseColors = []lipgloss.Color{
	"#73F59F",
	"#5FE08B",
	"#4BCC77",
	"#3FB86A",
	"#4BCC77",
	"#5FE08B",
}

// Layout provides the monitor frame: header, body, footer.
type Layout struct {
	Adapter string
	Target  string // url, topic or service type shown on the right
	Running bool
	Width   int
	Height  int
	Frame   int // incremented on each spinner tick for pulse animation
}

// BodySize returns the available (width, height) for content.
// Reserves: top pad(1) + header(1) + blank(1) + footer(1) + bottom pad(1) = 5 lines,
// and horizontal padding of 2 on each side = 4 columns.
func (l Layout) BodySize() (int, int) {
	return max(l.Width-4, 10), max(l.Height-6, 3)
}

// Render composes header + body + footer into a full frame.
func (l Layout) Render(body string, helpText string) string {
	contentWidth, bodyHeight := l.BodySize()

	var frame strings.Builder
	frame.WriteString("\n")

	// "netbridge · {adapter}" left, "{target} ●" right
	dim := lipgloss.NewStyle().Foreground(DimColor)
	left := TitleStyle.Render("netbridge") + dim.Render(" · ") + dim.Render(l.Adapter)

	dot := dim.Render("●")
	if l.Running {
		c := pulseColors[l.Frame%len(pulseColors)]
		dot = lipgloss.NewStyle().Foreground(c).Bold(true).Render("●")
	}
	right := dot
	if l.Target != "" {
		right = dim.Render(l.Target) + " " + dot
	}

	gap := max(contentWidth-lipgloss.Width(left)-lipgloss.Width(right)-1, 1)
	frame.WriteString("  " + left + strings.Repeat(" ", gap) + right + " ")
	frame.WriteString("\n\n")

	lines := strings.Split(body, "\n")
	for _, line := range lines {
		frame.WriteString("  " + line + "\n")
	}
	frame.WriteString(strings.Repeat("\n", max(bodyHeight-len(lines), 0)))

	frame.WriteString(HelpStyle.Render("  " + helpText))
	frame.WriteString("\n")

	return frame.String()
}
