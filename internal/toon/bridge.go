package toon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

// CommandRefresh is the only command the bridge acts on.
const CommandRefresh = "REFRESH"

// Logger is the structured logger the bridge writes to.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Handler is a child device handler that consumes bridge snapshots.
// A returned error is logged by the bridge and affects nothing else.
type Handler interface {
	UpdateChannels(ctx context.Context, state *toonapi.State) error
}

// Host is the framework the bridge reports to.
type Host interface {
	// UpdateStatus receives every status the bridge reports.
	UpdateStatus(status ConnectionStatus)

	// Children returns the current child handlers. It is called on every
	// poll cycle; the bridge never keeps the result across cycles.
	Children() []Handler
}

// Collector fetches device state from Toon.
type Collector interface {
	Collect(ctx context.Context) (*toonapi.State, error)
	Logout()
}

// ClientFactory builds a Collector that authenticates with tokens.
type ClientFactory func(cfg Config, tokens oauth2.TokenSource) Collector

// BridgeOptions holds the dependencies for creating a bridge.
type BridgeOptions struct {
	// Host receives status updates and supplies child handlers. Required.
	Host Host

	// NewClient builds the device API client. Required.
	NewClient ClientFactory

	// HTTPClient is used for the OAuth2 token endpoint. Optional.
	HTTPClient *http.Client

	// InitialDelay overrides DefaultInitialDelay. Optional.
	InitialDelay time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// BridgeMetrics contains poll statistics for health and the API.
type BridgeMetrics struct {
	Phase           Phase     `json:"phase"`
	Status          string    `json:"status"`
	Polls           uint64    `json:"polls"`
	PollFailures    uint64    `json:"poll_failures"`
	SkippedCycles   uint64    `json:"skipped_cycles"`
	Fanouts         uint64    `json:"fanouts"`
	HandlerFailures uint64    `json:"handler_failures"`
	LastPoll        time.Time `json:"last_poll,omitzero"`
}

// Bridge is the Toon bridge controller. It owns the connection state
// machine, the OAuth2 code exchange and the poll loop, and hands every
// successful snapshot to the host's current child handlers.
//
// Status precedence on (re)evaluation:
//
//	no config > no username > no password > no code > code without token > token
//
// Locks guard in-memory state only; no lock is held across a network call.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	host       Host
	newClient  ClientFactory
	httpClient *http.Client
	poller     *Poller

	// Serializes status reports so the host sees them in state order.
	reportMu sync.Mutex

	mu          sync.Mutex
	cfg         *Config
	tokens      *TokenStore
	client      Collector
	status      ConnectionStatus
	phase       Phase
	initialized bool
	disposed    bool

	// Bridge-level context, cancelled on Dispose.
	ctx       context.Context
	ctxCancel context.CancelFunc

	polls           atomic.Uint64
	pollFailures    atomic.Uint64
	skippedCycles   atomic.Uint64
	fanouts         atomic.Uint64
	handlerFailures atomic.Uint64
	lastPoll        atomic.Int64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Initialize to load configuration and
// start polling.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Host == nil {
		return nil, fmt.Errorf("host is required")
	}
	if opts.NewClient == nil {
		return nil, fmt.Errorf("client factory is required")
	}

	initialDelay := opts.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		host:       opts.Host,
		newClient:  opts.NewClient,
		httpClient: opts.HTTPClient,
		phase:      PhaseUninitialized,
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}
	b.poller = NewPoller(b.poll, initialDelay, b.recoverPoll)

	return b, nil
}

// Initialize loads cfg, evaluates the bridge status and starts polling.
// A nil cfg is valid input and reports the configuration as missing.
// Calling Initialize again replaces the configuration; the previous poll
// loop is stopped before the new one can poll, and the previous client is
// logged out.
func (b *Bridge) Initialize(ctx context.Context, cfg *Config) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return ErrDisposed
	}

	var snapshot *Config
	var tokens *TokenStore
	var client Collector
	if cfg != nil {
		c := *cfg
		snapshot = &c
		tokens = NewTokenStore(c, b.httpClient)
		client = b.newClient(c, tokens)
	}

	oldClient := b.client
	stopped := b.poller.Cancel()

	b.cfg = snapshot
	b.tokens = tokens
	b.client = client
	b.initialized = true
	b.mu.Unlock()

	// A poll still running under the old configuration must not report
	// after the new configuration has been evaluated.
	<-stopped

	if oldClient != nil {
		oldClient.Logout()
	}

	if snapshot != nil {
		b.logInfo("initializing toon bridge", "config", snapshot.String())
	}

	b.evaluate(ctx)
	b.RequestRefresh()

	return nil
}

// RequestRefresh restarts the poll loop so a poll happens after the initial
// delay. It is a no-op before Initialize, after Dispose and without
// configuration.
func (b *Bridge) RequestRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed || !b.initialized || b.cfg == nil {
		return
	}
	b.poller.Start(b.ctx, b.cfg.RefreshPeriod())
	b.logDebug("poll loop (re)started", "period", b.cfg.RefreshPeriod())
}

// HandleCommand handles a command sent to a bridge channel. Only
// CommandRefresh does anything.
func (b *Bridge) HandleCommand(channel, command string) error {
	if command != CommandRefresh {
		b.logWarn("bridge can only handle the REFRESH command",
			"channel", channel,
			"command", command)
		return fmt.Errorf("%w: %q", ErrUnsupportedCommand, command)
	}
	b.RequestRefresh()
	return nil
}

// AuthorizationURL returns the Toon consent page URL for redirectURI.
func (b *Bridge) AuthorizationURL(redirectURI string) (string, error) {
	tokens, err := b.tokenStore()
	if err != nil {
		return "", err
	}
	return tokens.AuthorizationURL(redirectURI), nil
}

// AccountConnected records an authorization code received on the callback
// and exchanges it for an access token right away. On failure the code is
// kept, the status becomes a communication error and the error is returned
// for the caller to log.
func (b *Bridge) AccountConnected(ctx context.Context, code, redirectURI string) error {
	tokens, err := b.tokenStore()
	if err != nil {
		return err
	}

	tokens.SetCode(code, redirectURI)
	b.logInfo("toon account connected, exchanging authorization code")

	return b.exchange(ctx, tokens, code, redirectURI)
}

// Dispose stops polling, waits for an in-flight poll to return and logs the
// client out. The bridge cannot be reused. Safe to call more than once.
func (b *Bridge) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	b.phase = PhaseDisposed
	client := b.client
	tokens := b.tokens
	b.client = nil
	b.poller.Cancel()
	b.ctxCancel()
	b.mu.Unlock()

	b.poller.Wait()
	if client != nil {
		client.Logout()
	}
	if tokens != nil {
		tokens.Clear()
	}

	b.logInfo("toon bridge disposed")
}

// Status returns the last reported status.
func (b *Bridge) Status() ConnectionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Phase returns the lifecycle phase.
func (b *Bridge) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Authorized reports whether an access token is held.
func (b *Bridge) Authorized() bool {
	tokens, err := b.tokenStore()
	if err != nil {
		return false
	}
	return tokens.Authorized()
}

// Metrics returns poll statistics.
func (b *Bridge) Metrics() BridgeMetrics {
	b.mu.Lock()
	phase := b.phase
	status := b.status
	b.mu.Unlock()

	m := BridgeMetrics{
		Phase:           phase,
		Status:          status.String(),
		Polls:           b.polls.Load(),
		PollFailures:    b.pollFailures.Load(),
		SkippedCycles:   b.skippedCycles.Load(),
		Fanouts:         b.fanouts.Load(),
		HandlerFailures: b.handlerFailures.Load(),
	}
	if ns := b.lastPoll.Load(); ns != 0 {
		m.LastPoll = time.Unix(0, ns)
	}
	return m
}

// Collect runs one collect call outside the poll loop, for discovery.
// It does not change the bridge status.
func (b *Bridge) Collect(ctx context.Context) (*toonapi.State, error) {
	b.mu.Lock()
	client := b.client
	disposed := b.disposed
	b.mu.Unlock()

	if disposed {
		return nil, ErrDisposed
	}
	if client == nil {
		return nil, ErrNotInitialized
	}
	if !b.Authorized() {
		return nil, ErrAuthorizationPending
	}

	state, err := client.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommunication, err)
	}
	return state, nil
}

// evaluate recomputes the status from configuration and token state.
func (b *Bridge) evaluate(ctx context.Context) {
	b.mu.Lock()
	cfg := b.cfg
	tokens := b.tokens
	b.mu.Unlock()

	if status, ok := checkConfig(cfg); !ok {
		b.setStatus(status, PhaseConfigInvalid)
		return
	}

	code, redirectURI := tokens.Code()
	switch {
	case tokens.Authorized():
		b.setStatus(StatusOnline(), PhaseConnected)
	case code == "":
		b.setStatus(StatusOffline(ReasonAuthorizationPending, msgAuthorizationPending), PhaseAwaitingAuthorization)
	default:
		if err := b.exchange(ctx, tokens, code, redirectURI); err != nil {
			b.logError("unable to get access token", err)
		}
	}
}

// exchange runs the code exchange and reports the outcome.
func (b *Bridge) exchange(ctx context.Context, tokens *TokenStore, code, redirectURI string) error {
	if b.isCurrent(tokens) {
		b.setPhase(PhaseAuthorizing)
	}

	_, err := tokens.Exchange(ctx, code, redirectURI)
	if !b.isCurrent(tokens) {
		return err
	}
	if err != nil {
		b.setStatus(StatusOffline(ReasonCommunicationError, err.Error()), PhaseCommunicationError)
		return err
	}

	b.setStatus(StatusOnline(), PhaseConnected)
	return nil
}

// poll is one poll cycle. It never returns an error: failures become
// status transitions or log entries.
func (b *Bridge) poll(ctx context.Context) {
	if len(b.host.Children()) == 0 {
		b.skippedCycles.Add(1)
		return
	}

	b.mu.Lock()
	cfg := b.cfg
	tokens := b.tokens
	client := b.client
	disposed := b.disposed
	b.mu.Unlock()

	if disposed || client == nil {
		return
	}
	if _, ok := checkConfig(cfg); !ok {
		b.skippedCycles.Add(1)
		return
	}

	if !tokens.Authorized() {
		code, redirectURI := tokens.Code()
		if code == "" {
			b.skippedCycles.Add(1)
			return
		}
		// Retry a failed exchange with the kept code.
		if err := b.exchange(ctx, tokens, code, redirectURI); err != nil {
			b.logError("unable to get access token", err)
			return
		}
	}

	b.polls.Add(1)
	b.lastPoll.Store(time.Now().UnixNano())

	state, err := client.Collect(ctx)
	if !b.isCurrent(tokens) {
		b.logDebug("dropping poll result from replaced configuration")
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			b.logDebug("poll abandoned", "error", err)
			return
		}
		b.pollFailures.Add(1)
		b.setStatus(StatusOffline(ReasonCommunicationError, err.Error()), PhaseCommunicationError)
		return
	}

	b.setStatus(StatusOnline(), PhaseConnected)
	b.fanOut(ctx, state)
}

// fanOut hands state to every current child, isolating failures.
func (b *Bridge) fanOut(ctx context.Context, state *toonapi.State) {
	if b.isDisposed() {
		return
	}
	b.fanouts.Add(1)

	for _, h := range b.host.Children() {
		if err := b.updateChild(ctx, h, state); err != nil {
			b.handlerFailures.Add(1)
			b.logError("child handler failed to apply snapshot", err)
		}
	}
}

func (b *Bridge) updateChild(ctx context.Context, h Handler, state *toonapi.State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrHandlerUpdate, r)
		}
	}()

	if err := h.UpdateChannels(ctx, state); err != nil {
		if errors.Is(err, ErrHandlerUpdate) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrHandlerUpdate, err)
	}
	return nil
}

// setStatus records status and reports it to the host. Consecutive ONLINE
// reports are suppressed. Nothing is reported after Dispose.
func (b *Bridge) setStatus(status ConnectionStatus, phase Phase) {
	b.reportMu.Lock()
	defer b.reportMu.Unlock()

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	wasOnline := b.status.Online
	b.status = status
	b.phase = phase
	b.mu.Unlock()

	if status.Online && wasOnline {
		return
	}

	// The host owns status logging and publishing.
	b.host.UpdateStatus(status)
}

func (b *Bridge) setPhase(phase Phase) {
	b.mu.Lock()
	if !b.disposed {
		b.phase = phase
	}
	b.mu.Unlock()
}

// isCurrent reports whether tokens still belong to the active
// configuration; results obtained under a replaced one are dropped.
func (b *Bridge) isCurrent(tokens *TokenStore) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens == tokens && !b.disposed
}

func (b *Bridge) isDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

func (b *Bridge) tokenStore() (*TokenStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.disposed:
		return nil, ErrDisposed
	case !b.initialized:
		return nil, ErrNotInitialized
	case b.tokens == nil:
		return nil, ErrConfigMissing
	}
	return b.tokens, nil
}

func (b *Bridge) recoverPoll(recovered any) {
	b.logError("poll cycle panicked", fmt.Errorf("%w: %v", ErrCommunication, recovered))
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
