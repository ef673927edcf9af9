package toon

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"
)

// exchangeTimeout bounds the code exchange triggered by a callback request.
const exchangeTimeout = 30 * time.Second

var connectPage = template.Must(template.New("connect").Parse(
	`<html><body>
<a href="{{.}}">Connect my Toon</a>
</body></html>
`))

// AccountConnector is the part of the bridge the callback endpoint drives.
type AccountConnector interface {
	AuthorizationURL(redirectURI string) (string, error)
	AccountConnected(ctx context.Context, code, redirectURI string) error
}

// CallbackHandler serves the OAuth2 redirect endpoint.
//
// Without a code it renders a page with a single "Connect my Toon" link.
// With a code it first hands the code to the bridge, then renders the same
// page; a failed exchange is logged and shows up as bridge status, not as
// an HTTP error. Only failures before rendering produce a 5xx.
type CallbackHandler struct {
	// TrustForwardedProto makes the redirect URI follow X-Forwarded-Proto.
	// Leave unset unless a reverse proxy controls the header.
	TrustForwardedProto bool

	bridge    AccountConnector
	publicURL string
	logger    Logger
}

// NewCallbackHandler creates the callback endpoint for bridge. If publicURL
// is set, the redirect URI is publicURL + CallbackPath instead of being
// derived from the request.
func NewCallbackHandler(bridge AccountConnector, publicURL string, logger Logger) *CallbackHandler {
	return &CallbackHandler{
		bridge:    bridge,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		h.warn("authorization rejected by provider",
			"error", providerErr,
			"description", query.Get("error_description"))
		http.Error(w, "authorization failed: "+providerErr, http.StatusBadGateway)
		return
	}

	redirectURI := h.redirectURI(r)

	if code := strings.TrimSpace(query.Get("code")); code != "" {
		ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
		err := h.bridge.AccountConnected(ctx, code, redirectURI)
		cancel()
		if err != nil {
			h.warn("unable to get access token", "error", err)
		}
	}

	authURL, err := h.bridge.AuthorizationURL(redirectURI)
	if err != nil {
		h.warn("cannot render authorization link", "error", err)
		http.Error(w, "bridge not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = connectPage.Execute(w, authURL) //nolint:errcheck // client went away
}

// redirectURI is the callback URL without query, as the provider saw it.
func (h *CallbackHandler) redirectURI(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL + CallbackPath
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if h.TrustForwardedProto {
		switch fwd := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])); fwd {
		case "http", "https":
			scheme = fwd
		}
	}

	return scheme + "://" + r.Host + r.URL.Path
}

func (h *CallbackHandler) warn(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, keysAndValues...)
	}
}
