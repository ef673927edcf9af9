package toonapi

import "errors"

// Domain errors for the Toon API client.
var (
	// ErrTransport is returned when the HTTP round trip itself fails.
	ErrTransport = errors.New("toonapi: transport failure")

	// ErrUnauthorized is returned when the API rejects the access token.
	ErrUnauthorized = errors.New("toonapi: unauthorized")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("toonapi: unexpected response status")

	// ErrNoAgreement is returned when the account has no Toon display.
	ErrNoAgreement = errors.New("toonapi: no agreement on account")

	// ErrDecode is returned when a response body is not valid JSON.
	ErrDecode = errors.New("toonapi: decoding response")
)
