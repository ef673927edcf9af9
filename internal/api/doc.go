// Package api implements the HTTP server of the Toon bridge.
//
// The server hosts two things:
//   - The OAuth2 redirect endpoint (/toonconnect) that completes the Toon
//     account link
//   - A small REST admin surface under /api/v1 for bridge status, forced
//     refresh, the device inventory, channel history and discovery scans
//
// # Authentication
//
// When api.auth.jwt_secret is set, admin routes require an HS256 bearer
// token whose role carries the route's permission (see package auth).
// Health, metrics and the OAuth callback stay open. State-changing calls are
// written to the audit log with the token subject as actor.
//
// # Graceful Degradation
//
// Every dependency except the bridge is optional. Without a history store the
// history endpoint answers 503; without discovery the scan endpoint does.
// The callback and status endpoints always work.
package api
