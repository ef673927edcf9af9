package toon

import "fmt"

// Reason qualifies an offline status.
type Reason string

// Offline reasons.
const (
	ReasonNone                 Reason = ""
	ReasonConfigMissing        Reason = "config_missing"
	ReasonUsernameMissing      Reason = "username_missing"
	ReasonPasswordMissing      Reason = "password_missing"
	ReasonAuthorizationPending Reason = "authorization_pending"
	ReasonCommunicationError   Reason = "communication_error"
	ReasonUnknown              Reason = "unknown"
)

// Operator-facing status details.
const (
	msgConfigMissing        = "Configuration is missing or corrupted"
	msgUsernameMissing      = "Username not configured"
	msgPasswordMissing      = "Password not configured"
	msgAuthorizationPending = "Gray Logic is not yet authorized to access Toon"
)

// ConnectionStatus is the bridge status reported to the host.
// The zero value is OFFLINE with no reason, which is never reported.
type ConnectionStatus struct {
	Online  bool   `json:"online"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusOnline returns the ONLINE status.
func StatusOnline() ConnectionStatus {
	return ConnectionStatus{Online: true}
}

// StatusOffline returns an OFFLINE status with the given reason and detail.
func StatusOffline(reason Reason, message string) ConnectionStatus {
	return ConnectionStatus{Reason: reason, Message: message}
}

// String renders the status for logs, e.g. "OFFLINE(communication_error): timeout".
func (s ConnectionStatus) String() string {
	if s.Online {
		return "ONLINE"
	}
	if s.Message == "" {
		return fmt.Sprintf("OFFLINE(%s)", s.Reason)
	}
	return fmt.Sprintf("OFFLINE(%s): %s", s.Reason, s.Message)
}

// Phase is the bridge lifecycle state.
type Phase int

// Lifecycle phases.
const (
	PhaseUninitialized Phase = iota
	PhaseConfigInvalid
	PhaseAwaitingAuthorization
	PhaseAuthorizing
	PhaseConnected
	PhaseCommunicationError
	PhaseDisposed
)

var phaseNames = map[Phase]string{
	PhaseUninitialized:         "uninitialized",
	PhaseConfigInvalid:         "config_invalid",
	PhaseAwaitingAuthorization: "awaiting_authorization",
	PhaseAuthorizing:           "authorizing",
	PhaseConnected:             "connected",
	PhaseCommunicationError:    "communication_error",
	PhaseDisposed:              "disposed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler so phases render by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("toon: unknown phase %q", text)
}
