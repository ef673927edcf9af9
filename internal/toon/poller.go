package toon

import (
	"context"
	"sync"
	"time"
)

// DefaultInitialDelay is the pause between Start and the first poll.
const DefaultInitialDelay = 50 * time.Millisecond

// Poller runs a poll function with fixed-delay semantics: the next poll is
// scheduled only after the previous one has returned, so polls of one
// Poller never overlap. At most one loop is active; Start replaces it.
//
// Thread Safety: All methods are safe for concurrent use.
type Poller struct {
	poll         func(ctx context.Context)
	initialDelay time.Duration
	onPanic      func(recovered any)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates an idle Poller for poll. onPanic, if non-nil, receives
// anything a poll panics with; the loop keeps running either way.
func NewPoller(poll func(ctx context.Context), initialDelay time.Duration, onPanic func(recovered any)) *Poller {
	if initialDelay < 0 {
		initialDelay = 0
	}
	return &Poller{
		poll:         poll,
		initialDelay: initialDelay,
		onPanic:      onPanic,
	}
}

// Start cancels any running loop and starts a new one that polls after the
// initial delay and then every period. The new loop does not poll until the
// old loop's in-flight poll has returned. Start never blocks.
//
// ctx bounds the loop and is passed to each poll; Cancel only stops
// scheduling, it does not cancel ctx.
func (p *Poller) Start(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = time.Duration(MinRefreshInterval) * time.Millisecond
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	prev := p.done

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(ctx, loopCtx, period, prev, done)
}

// Cancel stops scheduling further polls. An in-flight poll runs to
// completion. Calling Cancel more than once, or on an idle Poller, is a no-op.
//
// The returned channel is closed once the cancelled loop, and every loop
// before it, has exited. Unlike Wait it does not cover a loop started after
// Cancel returns.
func (p *Poller) Cancel() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.done == nil {
		return closedChan
	}
	return p.done
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Wait blocks until the most recently started loop, and every loop before
// it, has exited. Call after Cancel to be sure no poll is running.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Running reports whether a loop is scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(pollCtx, loopCtx context.Context, period time.Duration, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	// Chains loops so Wait on the newest covers all of them.
	if prev != nil {
		<-prev
	}

	timer := time.NewTimer(p.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-timer.C:
		}

		// A Cancel that raced the timer wins.
		if loopCtx.Err() != nil {
			return
		}

		p.runOnce(pollCtx)
		timer.Reset(period)
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	p.poll(ctx)
}
