package cli

import (
	"context"
	"errors"
	"time"
)

// ErrDone stops Poll without reporting an error.
var ErrDone = errors.New("done")

// Waker turns adapter notifications into a wake-up signal for the host
// loop. Notify never blocks; signals that arrive while one is pending are
// coalesced. It satisfies bridge.Notifier.
type Waker struct {
	ch chan struct{}
}

// NewWaker returns a Waker with an empty signal slot.
func NewWaker() *Waker {
	return &Waker{ch: make(chan struct{}, 1)}
}

// Notify requests a wake-up. The id is ignored.
func (w *Waker) Notify(uint64) {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// C returns the signal channel. A nil Waker yields a nil channel, which
// never fires.
func (w *Waker) C() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.ch
}

// Poll calls step on every tick of interval and whenever wake fires, until
// ctx is cancelled or step returns an error. ErrDone and cancellation end
// the loop cleanly. step always runs on the calling goroutine.
func Poll(ctx context.Context, interval time.Duration, wake *Waker, step func(context.Context) error) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := step(ctx); err != nil {
			if errors.Is(err, ErrDone) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake.C():
		}
	}
}
