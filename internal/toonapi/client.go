package toonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Defaults for the Toon API.
const (
	// DefaultBaseURL is the production Toon API endpoint.
	DefaultBaseURL = "https://api.toon.eu"

	defaultTimeout = 15 * time.Second

	// maxErrorBody bounds how much of an error response is kept for messages.
	maxErrorBody = 512
)

// Options configures a Client.
type Options struct {
	// BaseURL overrides DefaultBaseURL (tests, sandbox environments).
	BaseURL string

	// TokenSource supplies the bearer token for every request. Required.
	TokenSource oauth2.TokenSource

	// HTTPClient supplies the base transport. Optional.
	HTTPClient *http.Client

	// Timeout bounds each request. Defaults to 15s.
	Timeout time.Duration
}

// Client talks to the Toon v3 REST API on behalf of one account.
//
// The agreement (display) is resolved lazily on the first Collect and cached
// until Logout or an authorization failure.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.Mutex
	agreement *Agreement
}

// New creates a Client. It performs no network I/O.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var base http.RoundTripper
	if opts.HTTPClient != nil {
		base = opts.HTTPClient.Transport
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: opts.TokenSource,
				Base:   base,
			},
		},
	}
}

// Agreements lists every agreement on the account.
func (c *Client) Agreements(ctx context.Context) ([]Agreement, error) {
	var out []Agreement
	if err := c.get(ctx, "/toon/v3/agreements", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Collect fetches a full status snapshot for the account's first agreement.
//
// Returns:
//   - *State: Snapshot with Agreement populated
//   - error: ErrTransport, ErrUnauthorized, ErrUnexpectedStatus, ErrNoAgreement or ErrDecode
func (c *Client) Collect(ctx context.Context) (*State, error) {
	agreement, err := c.currentAgreement(ctx)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("X-Common-Name", agreement.DisplayCommonName)
	headers.Set("X-Agreement-ID", agreement.AgreementID)

	path := "/toon/v3/" + url.PathEscape(agreement.AgreementID) + "/status"

	var state State
	if err := c.get(ctx, path, headers, &state); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.forgetAgreement()
		}
		return nil, err
	}
	state.Agreement = agreement

	return &state, nil
}

// Logout drops the cached agreement and idle connections. The Toon API has
// no server-side session to end, so this never fails.
func (c *Client) Logout() {
	c.forgetAgreement()
	c.httpClient.CloseIdleConnections()
}

func (c *Client) currentAgreement(ctx context.Context) (Agreement, error) {
	c.mu.Lock()
	cached := c.agreement
	c.mu.Unlock()

	if cached != nil {
		return *cached, nil
	}

	agreements, err := c.Agreements(ctx)
	if err != nil {
		return Agreement{}, err
	}
	if len(agreements) == 0 {
		return Agreement{}, ErrNoAgreement
	}

	first := agreements[0]
	c.mu.Lock()
	c.agreement = &first
	c.mu.Unlock()

	return first, nil
}

func (c *Client) forgetAgreement() {
	c.mu.Lock()
	c.agreement = nil
	c.mu.Unlock()
}

// get performs a GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, headers http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: GET %s: %s", ErrUnauthorized, path, readSnippet(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: GET %s: %d %s", ErrUnexpectedStatus, path, resp.StatusCode, readSnippet(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrDecode, path, err)
	}
	return nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody)) //nolint:errcheck // best-effort message
	return strings.TrimSpace(string(b))
}
