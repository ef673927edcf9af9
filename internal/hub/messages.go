package hub

import (
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// Protocol is the protocol identifier used in bus messages.
const Protocol = "toon"

// Health status values.
const (
	HealthOnline   = "online"
	HealthOffline  = "offline"
	HealthStopping = "stopping"
)

// HealthMessage is the retained payload on graylogic/health/toon.
type HealthMessage struct {
	Bridge         string              `json:"bridge"`
	BridgeID       string              `json:"bridge_id"`
	Timestamp      time.Time           `json:"timestamp"`
	Status         string              `json:"status"`
	Reason         string              `json:"reason,omitempty"`
	Message        string              `json:"message,omitempty"`
	Version        string              `json:"version,omitempty"`
	UptimeSeconds  int64               `json:"uptime_seconds"`
	DevicesManaged int                 `json:"devices_managed"`
	Statistics     *toon.BridgeMetrics `json:"statistics,omitempty"`
}

// CommandMessage is received on graylogic/command/toon/{device_id}.
type CommandMessage struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Command string `json:"command"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage is published on graylogic/ack/toon/{device_id}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     string    `json:"error,omitempty"`
}

func healthStatus(s toon.ConnectionStatus) string {
	if s.Online {
		return HealthOnline
	}
	return HealthOffline
}
