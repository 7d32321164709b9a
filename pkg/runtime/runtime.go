// Package runtime provides the lifecycle foundation for netbridge hosts.
// Use the builder to compose adapters; closers run in reverse order.
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gezibash/netbridge/internal/config"
	"github.com/gezibash/netbridge/pkg/logging"
)

// Extension is a function that extends the runtime with a component.
// Extensions are called in order during Build().
type Extension func(*Runtime) error

// Option configures a runtime builder.
type Option func(*Builder) error

// Builder constructs a Runtime with composed components.
type Builder struct {
	name      string
	dataDir   string
	logLevel  string
	logFormat string
	logWriter io.Writer
	logger    *logging.Logger
	signals   bool

	extensions []Extension
}

// New starts building a runtime for the named host.
func New(name string) *Builder {
	return &Builder{
		name:      name,
		logLevel:  "info",
		logFormat: "text",
		signals:   true,
	}
}

// Compose builds a runtime using functional options.
func Compose(name string, opts ...Option) (*Runtime, error) {
	b := New(name)
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(b *Builder) error {
		b.dataDir = dir
		return nil
	}
}

// WithLogger sets a preconfigured logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) error {
		b.Logger(l)
		return nil
	}
}

// WithLogConfig sets the logger level and format.
func WithLogConfig(level, format string) Option {
	return func(b *Builder) error {
		b.Logging(level, format)
		return nil
	}
}

// WithoutSignals disables the SIGINT/SIGTERM handler. Used by tests.
func WithoutSignals() Option {
	return func(b *Builder) error {
		b.signals = false
		return nil
	}
}

// Use adds an extension to the runtime.
func (b *Builder) Use(ext Extension) *Builder {
	b.extensions = append(b.extensions, ext)
	return b
}

// DataDir sets the data directory. Defaults to ~/.netbridge
func (b *Builder) DataDir(dir string) *Builder {
	b.dataDir = dir
	return b
}

// Logging configures log level and format.
func (b *Builder) Logging(level, format string) *Builder {
	if level != "" {
		b.logLevel = level
	}
	if format != "" {
		b.logFormat = format
	}
	return b
}

// Logger sets a preconfigured logger; level, format and writer are then
// ignored.
func (b *Builder) Logger(l *logging.Logger) *Builder {
	b.logger = l
	return b
}

// LogWriter sets the output destination for logs. Defaults to os.Stderr.
func (b *Builder) LogWriter(w io.Writer) *Builder {
	b.logWriter = w
	return b
}

// Build constructs the runtime and applies every extension.
func (b *Builder) Build() (*Runtime, error) {
	if b.name == "" {
		return nil, fmt.Errorf("name is required")
	}

	dataDir := b.dataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	log := b.logger
	if log == nil {
		w := b.logWriter
		if w == nil {
			w = os.Stderr
		}
		log = logging.SetupWriter(b.logLevel, b.logFormat, w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if b.signals {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			select {
			case <-sigCh:
			case <-ctx.Done():
				signal.Stop(sigCh)
				return
			}
			log.Info("shutting down...")
			cancel()
			<-sigCh
			log.Warn("forced shutdown")
			os.Exit(1)
		}()
	}

	rt := &Runtime{
		name:       b.name,
		log:        log,
		dataDir:    dataDir,
		ctx:        ctx,
		cancel:     cancel,
		components: make(map[string]any),
	}

	for _, ext := range b.extensions {
		if err := ext(rt); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

// Runtime owns the lifecycle context, logger and registered closers.
type Runtime struct {
	name    string
	log     *logging.Logger
	dataDir string
	ctx     context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	components map[string]any
	closers    []func() error
	closed     bool
}

// Name returns the host name.
func (r *Runtime) Name() string { return r.name }

// Log returns the logger.
func (r *Runtime) Log() *logging.Logger { return r.log }

// DataDir returns the data directory.
func (r *Runtime) DataDir() string { return r.dataDir }

// DataPath joins elements to the data directory.
func (r *Runtime) DataPath(elem ...string) string {
	return filepath.Join(append([]string{r.dataDir}, elem...)...)
}

// Context returns the lifecycle context (cancelled on shutdown).
func (r *Runtime) Context() context.Context { return r.ctx }

// Shutdown triggers graceful shutdown.
func (r *Runtime) Shutdown() { r.cancel() }

// Wait blocks until shutdown.
func (r *Runtime) Wait() { <-r.ctx.Done() }

// Set stores a component for later retrieval.
func (r *Runtime) Set(key string, component any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[key] = component
}

// Get retrieves a component by key.
func (r *Runtime) Get(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.components[key]
}

// OnClose registers a cleanup function to be called on Close().
func (r *Runtime) OnClose(fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

// Close cancels the context and runs closers in reverse registration order.
// Subsequent calls are no-ops.
func (r *Runtime) Close() error {
	r.cancel()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
