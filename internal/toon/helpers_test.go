package toon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

type oauthTokenSource = oauth2.TokenSource

// mockHost implements Host for testing.
type mockHost struct {
	mu       sync.Mutex
	statuses []ConnectionStatus
	children []Handler
}

func (h *mockHost) UpdateStatus(s ConnectionStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, s)
}

func (h *mockHost) Children() []Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Handler, len(h.children))
	copy(out, h.children)
	return out
}

func (h *mockHost) SetChildren(children ...Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.children = children
}

func (h *mockHost) Statuses() []ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ConnectionStatus, len(h.statuses))
	copy(out, h.statuses)
	return out
}

func (h *mockHost) OnlineReports() int {
	n := 0
	for _, s := range h.Statuses() {
		if s.Online {
			n++
		}
	}
	return n
}

func (h *mockHost) Last() ConnectionStatus {
	all := h.Statuses()
	if len(all) == 0 {
		return ConnectionStatus{}
	}
	return all[len(all)-1]
}

// mockCollector implements Collector for testing.
type mockCollector struct {
	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
	logouts   int
	err       error
	block     chan struct{}
	started   chan struct{}
	tokens    oauth2.TokenSource
}

func (c *mockCollector) Collect(ctx context.Context) (*toonapi.State, error) {
	c.mu.Lock()
	c.calls++
	c.active++
	if c.active > c.maxActive {
		c.maxActive = c.active
	}
	err := c.err
	block := c.block
	started := c.started
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &toonapi.State{
		Thermostat: &toonapi.ThermostatInfo{CurrentDisplayTemp: 2000},
	}, nil
}

func (c *mockCollector) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logouts++
}

func (c *mockCollector) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *mockCollector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *mockCollector) MaxActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

func (c *mockCollector) Logouts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logouts
}

// mockHandler implements Handler for testing.
type mockHandler struct {
	mu        sync.Mutex
	updates   int
	err       error
	panicWith any
}

func (h *mockHandler) UpdateChannels(_ context.Context, state *toonapi.State) error {
	h.mu.Lock()
	h.updates++
	err := h.err
	p := h.panicWith
	h.mu.Unlock()

	if state == nil {
		return errors.New("nil snapshot")
	}
	if p != nil {
		panic(p)
	}
	return err
}

func (h *mockHandler) Updates() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Debug(string, ...any) {}
func (l *mockLogger) Info(string, ...any)  {}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *mockLogger) Warns() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// fakeProvider is a minimal OAuth2 token endpoint.
type fakeProvider struct {
	server *httptest.Server

	mu        sync.Mutex
	failNext  int
	codes     []string
	redirects []string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", p.handleToken)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	code := r.PostForm.Get("code")

	p.mu.Lock()
	p.codes = append(p.codes, code)
	p.redirects = append(p.redirects, r.PostForm.Get("redirect_uri"))
	fail := p.failNext > 0 || code == "bad" || r.PostForm.Get("grant_type") != "authorization_code"
	if p.failNext > 0 {
		p.failNext--
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "tok-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (p *fakeProvider) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

func (p *fakeProvider) Redirects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.redirects...)
}

func (p *fakeProvider) Exchanges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.codes)
}

func (p *fakeProvider) configure(cfg *Config) *Config {
	cfg.AuthURL = p.server.URL + "/authorize"
	cfg.TokenURL = p.server.URL + "/token"
	return cfg
}

// completeConfig returns credentials with no code and no token.
func completeConfig() *Config {
	return &Config{
		Username:        "user",
		Password:        "secret",
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RefreshInterval: MinRefreshInterval,
	}
}

// authorizedConfig returns credentials with a seeded access token.
func authorizedConfig() *Config {
	cfg := completeConfig()
	cfg.AccessCode = "seeded-code"
	cfg.AccessToken = "seeded-token"
	return cfg
}

func newTestBridge(t *testing.T, host Host, collector *mockCollector) (*Bridge, *mockLogger) {
	t.Helper()

	logger := &mockLogger{}
	b, err := NewBridge(BridgeOptions{
		Host: host,
		NewClient: func(_ Config, tokens oauth2.TokenSource) Collector {
			collector.mu.Lock()
			collector.tokens = tokens
			collector.mu.Unlock()
			return collector
		},
		InitialDelay: time.Millisecond,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	t.Cleanup(b.Dispose)
	return b, logger
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
