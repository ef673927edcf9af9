package toon

import "errors"

// Domain errors for the Toon bridge. Most of these never leave the bridge:
// they are turned into a ConnectionStatus or a log entry.
var (
	// ErrConfigMissing is returned when the bridge has no usable configuration.
	ErrConfigMissing = errors.New("toon: configuration is missing or incomplete")

	// ErrAuthorizationPending is returned while no authorization code or
	// access token is available.
	ErrAuthorizationPending = errors.New("toon: not yet authorized to access Toon")

	// ErrOAuthExchange is returned when exchanging an authorization code fails.
	ErrOAuthExchange = errors.New("toon: authorization code exchange failed")

	// ErrCommunication is returned when collecting device state fails.
	ErrCommunication = errors.New("toon: communication with Toon failed")

	// ErrHandlerUpdate wraps a failure of one child handler to apply a snapshot.
	ErrHandlerUpdate = errors.New("toon: child handler update failed")

	// ErrUnsupportedCommand is returned for bridge commands other than REFRESH.
	ErrUnsupportedCommand = errors.New("toon: bridge can only handle the REFRESH command")

	// ErrNotInitialized is returned when an operation needs Initialize first.
	ErrNotInitialized = errors.New("toon: bridge not initialized")

	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("toon: bridge disposed")
)
