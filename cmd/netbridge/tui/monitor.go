// Package tui renders a live adapter event feed in the terminal.
package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/gezibash/netbridge/internal/cli"
)

const defaultMaxEvents = 1000

// Options configure the monitor.
type Options struct {
	Adapter string
	Target  string
	// Input, when set, shows a prompt whose submitted lines are passed to it.
	Input     func(line string)
	MaxEvents int
}

// EventMsg delivers one accepted adapter event to the monitor.
type EventMsg cli.Event

type stoppedMsg struct{ err error }

// Monitor is the bubbletea model for the event feed.
type Monitor struct {
	opts     Options
	layout   Layout
	spinner  spinner.Model
	viewport viewport.Model
	input    textinput.Model

	events []cli.Event
	counts map[string]int
	total  int
	paused bool
	err    error
	ready  bool
}

// NewMonitor creates a monitor model.
func NewMonitor(opts Options) *Monitor {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = defaultMaxEvents
	}

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = StatusStyle

	ti := textinput.New()
	ti.Placeholder = "type and press enter to send"
	ti.Prompt = "> "
	if opts.Input != nil {
		ti.Focus()
	}

	return &Monitor{
		opts:    opts,
		layout:  Layout{Adapter: opts.Adapter, Target: opts.Target, Running: true},
		spinner: s,
		input:   ti,
		counts:  make(map[string]int),
	}
}

func (m *Monitor) Init() tea.Cmd {
	if m.opts.Input != nil {
		return tea.Batch(m.spinner.Tick, textinput.Blink)
	}
	return m.spinner.Tick
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.layout.Width = msg.Width
		m.layout.Height = msg.Height
		m.resize()
		return m, nil

	case EventMsg:
		m.add(cli.Event(msg))
		return m, nil

	case stoppedMsg:
		m.layout.Running = false
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		m.layout.Frame++
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.opts.Input != nil {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.opts.Input != nil {
		if msg.Type == tea.KeyEnter {
			if line := m.input.Value(); line != "" {
				m.opts.Input(line)
				m.input.Reset()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
	case "c":
		m.events = nil
		m.refresh()
	}
	return m, nil
}

func (m *Monitor) add(ev cli.Event) {
	m.total++
	m.counts[ev.Kind]++
	if m.paused {
		return
	}
	m.events = append(m.events, ev)
	if over := len(m.events) - m.opts.MaxEvents; over > 0 {
		m.events = slices.Delete(m.events, 0, over)
	}
	m.refresh()
}

func (m *Monitor) resize() {
	w, h := m.layout.BodySize()
	// status line above the feed, prompt below it
	h--
	if m.opts.Input != nil {
		h -= 2
		m.input.Width = w - 2
	}
	h = max(h, 1)

	if !m.ready {
		m.viewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = h
	}
	m.refresh()
}

func (m *Monitor) refresh() {
	if !m.ready {
		return
	}
	follow := m.viewport.AtBottom()
	lines := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		lines = append(lines, renderEvent(ev, m.viewport.Width))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

func renderEvent(ev cli.Event, width int) string {
	var b strings.Builder
	b.WriteString(TimeStyle.Render(ev.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(styleForKind(ev.Kind).Render(ev.Kind))
	for _, k := range slices.Sorted(maps.Keys(ev.Attrs)) {
		b.WriteByte(' ')
		b.WriteString(AttrKeyStyle.Render(k + "="))
		b.WriteString(fmt.Sprint(ev.Attrs[k]))
	}
	return wordwrap.String(b.String(), width)
}

func (m *Monitor) status() string {
	if m.err != nil {
		return ErrorStyle.Render("stopped: " + m.err.Error())
	}

	var parts []string
	for _, k := range slices.Sorted(maps.Keys(m.counts)) {
		parts = append(parts, fmt.Sprintf("%s %d", k, m.counts[k]))
	}
	line := fmt.Sprintf("%d events", m.total)
	if len(parts) > 0 {
		line += "  " + strings.Join(parts, " · ")
	}

	switch {
	case !m.layout.Running:
		return HelpStyle.Render(line + "  (stopped)")
	case m.paused:
		return StatusStyle.Render(line + "  (paused)")
	default:
		return m.spinner.View() + " " + HelpStyle.Render(line)
	}
}

func (m *Monitor) View() string {
	if !m.ready {
		return "\n  " + m.spinner.View() + " starting..."
	}

	var body strings.Builder
	body.WriteString(m.status())
	body.WriteString("\n")
	body.WriteString(m.viewport.View())
	if m.opts.Input != nil {
		body.WriteString("\n\n")
		body.WriteString(m.input.View())
	}

	help := "q quit · p pause · c clear · pgup/pgdn scroll"
	if m.opts.Input != nil {
		help = "enter send · esc quit · pgup/pgdn scroll"
	}
	return m.layout.Render(body.String(), help)
}
