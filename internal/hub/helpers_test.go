package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

type publishedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockPublisher records publishes.
type mockPublisher struct {
	mu           sync.Mutex
	messages     []publishedMsg
	disconnected bool
	err          error
}

func (p *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMsg{topic, payload, qos, retained})
	return nil
}

func (p *mockPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.disconnected
}

func (p *mockPublisher) On(topic string) []publishedMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedMsg
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// mockBridge implements Bridge.
type mockBridge struct {
	mu       sync.Mutex
	commands []string
}

func (b *mockBridge) HandleCommand(_, command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, command)
	if command != toon.CommandRefresh {
		return toon.ErrUnsupportedCommand
	}
	return nil
}

func (b *mockBridge) Metrics() toon.BridgeMetrics {
	return toon.BridgeMetrics{Phase: toon.PhaseConnected, Polls: 7}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// recordingLogger counts log calls by level.
type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(string, ...any) {}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("decoding %s: %v", payload, err)
	}
	return v
}

func newTestHub(pub *mockPublisher) *Hub {
	opts := Options{BridgeID: "toon-bridge-01", Version: "test", Logger: nopLogger{}}
	if pub != nil {
		opts.Publisher = pub
	}
	return New(opts)
}

var errBoom = errors.New("boom")
