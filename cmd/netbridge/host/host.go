// Package host wires an adapter's callbacks to command output: events are
// filtered, then streamed to stdout or shown in the terminal UI.
package host

import (
	"context"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gezibash/netbridge/cmd/netbridge/tui"
	"github.com/gezibash/netbridge/internal/cli"
	"github.com/gezibash/netbridge/internal/filter"
)

// Flags are the event display flags shared by streaming commands.
type Flags struct {
	Filter string
	TUI    bool
}

// Bind registers --filter and --tui on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Filter, "filter", "", "CEL expression selecting events, e.g. 'kind == \"text\"'")
	cmd.Flags().BoolVar(&f.TUI, "tui", false, "show events in a live terminal UI")
}

// UseTUI reports whether the terminal UI was requested and stdout is a
// terminal.
func (f *Flags) UseTUI() bool {
	if !f.TUI {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Emitter turns adapter callbacks into events. Events emitted before the
// output is attached, for example while the adapter connects, are held and
// flushed on Attach.
type Emitter struct {
	adapter string

	mu      sync.Mutex
	sink    func(cli.Event)
	pending []cli.Event
}

// NewEmitter creates an emitter for the named adapter.
func NewEmitter(adapter string) *Emitter {
	return &Emitter{adapter: adapter}
}

// Emit records an event of the given kind with alternating key/value
// attributes.
func (e *Emitter) Emit(kind string, kv ...any) {
	ev := cli.NewEvent(e.adapter, kind, kv...)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sink == nil {
		e.pending = append(e.pending, ev)
		return
	}
	e.sink(ev)
}

// Attach sets the destination and flushes held events to it.
func (e *Emitter) Attach(sink func(cli.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = sink
	for _, ev := range e.pending {
		sink(ev)
	}
	e.pending = nil
}

// Session describes what a streaming command shows.
type Session struct {
	Adapter string
	Target  string
	// Input receives lines typed into the terminal UI. Nil hides the prompt.
	Input func(line string)
}

// Run compiles the filter, attaches em to the output and runs loop until it
// returns or the user quits the UI.
func Run(ctx context.Context, flags *Flags, out *cli.Output, em *Emitter, s Session, loop func(ctx context.Context) error) error {
	f, err := filter.Compile(flags.Filter)
	if err != nil {
		return err
	}
	stream := out.Stream(f)

	if !flags.UseTUI() {
		em.Attach(func(ev cli.Event) { stream.Emit(ev) })
		return loop(ctx)
	}

	opts := tui.Options{Adapter: s.Adapter, Target: s.Target, Input: s.Input}
	return tui.Run(ctx, opts, func(ctx context.Context, emit func(cli.Event)) error {
		stream.To(emit)
		em.Attach(func(ev cli.Event) { stream.Emit(ev) })
		return loop(ctx)
	})
}
