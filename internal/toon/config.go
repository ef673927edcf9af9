package toon

import (
	"fmt"
	"time"
)

// Bridge defaults.
const (
	// CallbackPath is where the authorization callback is mounted.
	CallbackPath = "/toonconnect"

	// DefaultAuthURL and DefaultTokenURL are the Toon OAuth2 endpoints.
	DefaultAuthURL  = "https://api.toon.eu/authorize"
	DefaultTokenURL = "https://api.toon.eu/token"

	// DefaultRefreshInterval is the poll period in milliseconds.
	DefaultRefreshInterval = 300000

	// MinRefreshInterval is the smallest accepted poll period in milliseconds.
	MinRefreshInterval = 1000
)

// Config is the bridge configuration as supplied by the operator.
// The bridge copies it at Initialize and never writes to it; obtained codes
// and tokens live in the TokenStore.
type Config struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string

	// AccessCode and AccessToken seed the token store, so a previously
	// authorized bridge can skip the browser round trip.
	AccessCode  string
	AccessToken string

	// RefreshInterval is the poll period in milliseconds.
	RefreshInterval int

	// AuthURL and TokenURL override the Toon OAuth2 endpoints.
	AuthURL  string
	TokenURL string
}

// RefreshPeriod returns the poll period, clamped to MinRefreshInterval.
func (c Config) RefreshPeriod() time.Duration {
	ms := c.RefreshInterval
	if ms <= 0 {
		ms = DefaultRefreshInterval
	}
	if ms < MinRefreshInterval {
		ms = MinRefreshInterval
	}
	return time.Duration(ms) * time.Millisecond
}

// String renders the config without secrets.
func (c Config) String() string {
	return fmt.Sprintf("toon.Config{username=%q client_id=%q code=%t token=%t refresh=%dms}",
		c.Username, c.ClientID, c.AccessCode != "", c.AccessToken != "", c.RefreshInterval)
}

// checkConfig returns the offline status for the first missing required
// field, or ok=true if the configuration is complete enough to authorize.
// Order: configuration object, username, password.
func checkConfig(c *Config) (ConnectionStatus, bool) {
	switch {
	case c == nil:
		return StatusOffline(ReasonConfigMissing, msgConfigMissing), false
	case c.Username == "":
		return StatusOffline(ReasonUsernameMissing, msgUsernameMissing), false
	case c.Password == "":
		return StatusOffline(ReasonPasswordMissing, msgPasswordMissing), false
	}
	return ConnectionStatus{}, true
}
