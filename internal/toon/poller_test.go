package toon

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerStartTwiceRunsOneLoop(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(context.Context) { calls.Add(1) }, 0, nil)

	const period = 50 * time.Millisecond
	p.Start(context.Background(), period)
	p.Start(context.Background(), period)

	time.Sleep(10 * period)
	p.Cancel()
	p.Wait()

	// One loop polls ~10 times in the window, two loops would poll ~20.
	got := calls.Load()
	if got < 8 || got > 12 {
		t.Errorf("polls = %d over 10 periods, want about 10", got)
	}
}

func TestPollerCancelStopsPolling(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(func(context.Context) { calls.Add(1) }, time.Millisecond, nil)

	p.Start(context.Background(), 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	p.Cancel()
	p.Cancel()
	p.Wait()

	if p.Running() {
		t.Error("Running() = true after Cancel")
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("polls after Cancel: %d -> %d", after, got)
	}
}

func TestPollerCancelLetsInFlightPollFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	p := NewPoller(func(ctx context.Context) {
		close(started)
		<-release
		if ctx.Err() == nil {
			finished.Store(true)
		}
	}, 0, nil)

	p.Start(context.Background(), time.Hour)
	<-started
	p.Cancel()
	close(release)
	p.Wait()

	if !finished.Load() {
		t.Error("in-flight poll saw a cancelled context")
	}
}

func TestPollerSurvivesPanics(t *testing.T) {
	var calls atomic.Int32
	var recovered atomic.Int32

	p := NewPoller(func(context.Context) {
		if calls.Add(1) == 1 {
			panic("first poll explodes")
		}
	}, 0, func(any) { recovered.Add(1) })

	p.Start(context.Background(), 2*time.Millisecond)
	waitFor(t, time.Second, "polls after panic", func() bool { return calls.Load() >= 3 })
	p.Cancel()
	p.Wait()

	if got := recovered.Load(); got != 1 {
		t.Errorf("recovered panics = %d, want 1", got)
	}
}

func TestPollerRestartNeverOverlaps(t *testing.T) {
	var mu sync.Mutex
	active, maxActive, calls := 0, 0, 0

	p := NewPoller(func(context.Context) {
		mu.Lock()
		active++
		calls++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(15 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	}, 0, nil)

	for range 5 {
		p.Start(context.Background(), time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(40 * time.Millisecond)
	p.Cancel()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("max concurrent polls = %d, want 1", maxActive)
	}
	if calls == 0 {
		t.Error("no polls ran")
	}
}

func TestPollerStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(func(context.Context) { calls.Add(1) }, time.Millisecond, nil)

	p.Start(ctx, 2*time.Millisecond)
	waitFor(t, time.Second, "first poll", func() bool { return calls.Load() >= 1 })
	cancel()
	p.Wait()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != after {
		t.Errorf("polls after context cancel: %d -> %d", after, got)
	}
}

func TestPollerWaitWhenIdle(t *testing.T) {
	p := NewPoller(func(context.Context) {}, 0, nil)

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() blocked on an idle poller")
	}
}
