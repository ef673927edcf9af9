// Package toonapi is a small client for the Toon cloud REST API (v3).
//
// It covers the two calls the bridge needs: resolving the account's
// agreement (the display the account owns) and fetching the full status
// snapshot for that agreement. Authentication is delegated to an
// oauth2.TokenSource, so the client never sees client credentials or
// authorization codes.
//
// Usage:
//
//	c := toonapi.New(toonapi.Options{TokenSource: tokens})
//	state, err := c.Collect(ctx)
//	if errors.Is(err, toonapi.ErrUnauthorized) {
//	    // a human has to re-authorize the bridge
//	}
//
// # Thread Safety
//
// Client is safe for concurrent use.
package toonapi
