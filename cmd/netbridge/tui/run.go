package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gezibash/netbridge/internal/cli"
)

// Run starts the monitor and runs loop alongside it. Events passed to emit
// appear in the feed. Quitting the UI cancels the context given to loop;
// loop returning leaves the UI open with a stopped status until the user
// quits. The loop's error is returned.
func Run(ctx context.Context, opts Options, loop func(ctx context.Context, emit func(cli.Event)) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewMonitor(opts), tea.WithAltScreen(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		err := loop(ctx, func(ev cli.Event) { p.Send(EventMsg(ev)) })
		p.Send(stoppedMsg{err: err})
		errc <- err
	}()

	_, perr := p.Run()
	cancel()
	err := <-errc

	if perr != nil && !errors.Is(perr, tea.ErrProgramKilled) {
		return errors.Join(err, perr)
	}
	return err
}
