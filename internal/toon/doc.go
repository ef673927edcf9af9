// Package toon implements the Toon bridge controller for Gray Logic.
//
// A bridge represents one Toon account. It authorizes against the Toon cloud
// with the OAuth2 authorization code grant, polls the account's display on a
// fixed delay, and pushes every successful snapshot to the child handlers
// (display, smart plugs) the host currently has registered.
//
// # Architecture
//
//	browser ──► /toonconnect ──► Bridge.AccountConnected ──► TokenStore.Exchange
//	                                                     │
//	Poller ──► Bridge.poll ──► Collector.Collect ───────┘──► Host.UpdateStatus
//	                      └──► Host.Children() ──► Handler.UpdateChannels
//
// # Status
//
// The bridge reports ONLINE, or OFFLINE with one of the Reason values.
// Configuration problems and a missing authorization are reported without
// touching the network. Poll failures become OFFLINE(communication_error)
// and the next successful poll brings the bridge back ONLINE. Repeated
// ONLINE reports are suppressed.
//
// # Tokens
//
// Access tokens are not refreshed. When Toon starts rejecting the token the
// bridge goes offline and someone has to follow the authorization link again.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package toon
