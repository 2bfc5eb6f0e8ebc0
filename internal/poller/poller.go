// Package poller runs a periodic task bound to a cancellation handle.
package poller

import (
	"context"
	"sync"
	"time"
)

// Handle controls a running poll loop. The zero value and nil are stopped handles.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start calls fn every interval until the handle is stopped or parent is done.
// The first call happens one interval after Start. fn receives a context that
// is cancelled by Stop, so an in-flight call can abandon its request.
func Start(parent context.Context, interval time.Duration, fn func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn(ctx)
			}
		}
	}()

	return h
}

// Stop cancels the loop and waits for an in-flight call to return.
func (h *Handle) Stop() {
	if h == nil || h.cancel == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	if h == nil || h.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return h.done
}
