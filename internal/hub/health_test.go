package hub

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/devices"
)

func TestHealthReporterPublishesPeriodically(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHub(pub)
	h.SetBridge(&mockBridge{})
	_ = h.AddDevice(devices.NewDisplay("display", "", devices.Sinks{}))

	r := NewHealthReporter(h, 10*time.Millisecond)
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.On("graylogic/health/toon")) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	msgs := pub.On("graylogic/health/toon")
	if len(msgs) < 3 {
		t.Fatalf("health messages = %d, want at least 3", len(msgs))
	}

	first := decode[HealthMessage](t, msgs[0].payload)
	if first.DevicesManaged != 1 || first.Version != "test" {
		t.Errorf("first = %+v", first)
	}
	last := decode[HealthMessage](t, msgs[len(msgs)-1].payload)
	if last.Status != HealthStopping || last.Reason != "shutdown" {
		t.Errorf("last = %+v, want stopping", last)
	}
}

func TestHealthReporterStopsWithContext(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHub(pub)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewHealthReporter(h, time.Hour)
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return after context cancel")
	}
}

func TestNewHealthReporterDefaultInterval(t *testing.T) {
	r := NewHealthReporter(newTestHub(nil), 0)
	if r.interval != DefaultHealthInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultHealthInterval)
	}
}
