package mqtt

import (
	"fmt"
	"strings"
)

// Topic layout. Every bridge topic uses the flat Gray Logic scheme
// graylogic/{category}/{protocol}/{address}, with protocol "toon".
const (
	// TopicPrefix is the root of every Gray Logic topic.
	TopicPrefix = "graylogic"

	// Protocol is the protocol segment for this bridge.
	Protocol = "toon"
)

// Topics provides builders for the Toon bridge's MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("toon-display")
//	// Returns: "graylogic/state/toon/toon-display"
type Topics struct{}

// State returns the retained state topic of one child device.
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, deviceID)
}

// Command returns the command topic of one device. The bridge itself uses
// its bridge ID as the device.
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, deviceID)
}

// AllCommands matches every command addressed to this protocol.
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/%s/#", TopicPrefix, Protocol)
}

// Ack returns the acknowledgement topic for commands to deviceID.
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, deviceID)
}

// Health returns the retained bridge health topic. It doubles as the LWT topic.
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// Discovery returns the topic discovered devices are announced on.
func (Topics) Discovery() string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefix, Protocol)
}

// CommandDevice extracts the device ID from a command topic.
//
// Example: "graylogic/command/toon/toon-bridge-01" → "toon-bridge-01", true
func CommandDevice(topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/command/%s/", TopicPrefix, Protocol)
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
