// Package poller runs a function immediately and then on a fixed interval
// until its Handle is stopped. Views own their handles and stop them on
// teardown so no update lands after the view is gone.
package poller

import (
	"context"
	"sync"
	"time"
)

// Handle controls a running poller.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fn once right away, then every interval, until ctx is done or
// Stop is called. fn receives a context that is cancelled on Stop.
func Start(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()
	return h
}

// Stop cancels the poller and waits for an in-flight fn to return. It is
// safe to call more than once and on a nil Handle.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the poller goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
