package hub

import (
	"context"
	"sync"
	"time"
)

// DefaultHealthInterval is used when HealthReporter gets a zero interval.
const DefaultHealthInterval = 30 * time.Second

// HealthReporter republishes the hub's health on a fixed interval.
type HealthReporter struct {
	hub      *Hub
	interval time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a reporter for hub. Call Start to begin.
func NewHealthReporter(hub *Hub, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	return &HealthReporter{
		hub:      hub,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start publishes immediately and then on every tick until ctx ends or
// Stop is called.
func (r *HealthReporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call more than once.
func (r *HealthReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		if err := r.hub.publishHealth(HealthStopping, "shutdown", ""); err != nil {
			r.hub.logError("failed to publish stopping status", err)
		}
	})
}

// PublishNow publishes the current health immediately.
func (r *HealthReporter) PublishNow() error {
	msg := r.hub.Health()
	return r.hub.publishHealth(msg.Status, msg.Reason, msg.Message)
}

func (r *HealthReporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.PublishNow(); err != nil {
		r.hub.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if err := r.PublishNow(); err != nil {
				r.hub.logError("failed to publish health", err)
			}
		}
	}
}
