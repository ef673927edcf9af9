package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

var (
	// ErrDuplicateDevice is returned when adding a device ID twice.
	ErrDuplicateDevice = errors.New("hub: device already registered")

	// ErrDeviceNotFound is returned for unknown device IDs.
	ErrDeviceNotFound = errors.New("hub: device not found")
)

// Publisher is the bus connection the hub publishes on.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Bridge is the part of the Toon bridge the hub drives.
type Bridge interface {
	HandleCommand(channel, command string) error
	Metrics() toon.BridgeMetrics
}

// Logger is the logging surface the hub needs.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options configures a Hub.
type Options struct {
	BridgeID  string
	Version   string
	Publisher Publisher // optional; nil keeps status local
	Logger    Logger    // optional
}

// Hub implements toon.Host.
//
// Thread Safety: All methods are safe for concurrent use.
type Hub struct {
	bridgeID  string
	version   string
	publisher Publisher
	logger    Logger
	startTime time.Time

	mu      sync.RWMutex
	devices map[string]devices.Device
	status  toon.ConnectionStatus
	bridge  Bridge
}

var _ toon.Host = (*Hub)(nil)

// New creates an empty hub.
func New(opts Options) *Hub {
	return &Hub{
		bridgeID:  opts.BridgeID,
		version:   opts.Version,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		startTime: time.Now(),
		devices:   make(map[string]devices.Device),
		status:    toon.StatusOffline(toon.ReasonUnknown, ""),
	}
}

// SetBridge attaches the bridge once it exists. The bridge needs the hub at
// construction, so this cannot be an option.
func (h *Hub) SetBridge(b Bridge) {
	h.mu.Lock()
	h.bridge = b
	h.mu.Unlock()
}

// AddDevice registers a child device.
func (h *Hub) AddDevice(d devices.Device) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.devices[d.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.ID())
	}
	h.devices[d.ID()] = d
	return nil
}

// RemoveDevice unregisters a child device. The next poll no longer
// updates it.
func (h *Hub) RemoveDevice(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.devices[id]; !exists {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	delete(h.devices, id)
	return nil
}

// Device looks up a child device.
func (h *Hub) Device(id string) (devices.Device, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.devices[id]
	return d, ok
}

// Devices returns the child devices sorted by ID.
func (h *Hub) Devices() []devices.Device {
	h.mu.RLock()
	out := make([]devices.Device, 0, len(h.devices))
	for _, d := range h.devices {
		out = append(out, d)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Children implements toon.Host.
func (h *Hub) Children() []toon.Handler {
	devs := h.Devices()
	out := make([]toon.Handler, len(devs))
	for i, d := range devs {
		out[i] = d
	}
	return out
}

// UpdateStatus implements toon.Host. The status is kept for Status and
// published retained on the health topic.
func (h *Hub) UpdateStatus(status toon.ConnectionStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()

	if status.Online {
		h.logInfo("toon bridge online")
	} else {
		h.logWarn("toon bridge offline", "reason", status.Reason, "message", status.Message)
	}

	if err := h.publishHealth(healthStatus(status), string(status.Reason), status.Message); err != nil {
		h.logError("failed to publish bridge status", err)
	}
}

// Status returns the last status the bridge reported.
func (h *Hub) Status() toon.ConnectionStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Health builds the current health message.
func (h *Hub) Health() HealthMessage {
	h.mu.RLock()
	status := h.status
	bridge := h.bridge
	count := len(h.devices)
	h.mu.RUnlock()

	msg := HealthMessage{
		Bridge:         Protocol,
		BridgeID:       h.bridgeID,
		Timestamp:      time.Now().UTC(),
		Status:         healthStatus(status),
		Reason:         string(status.Reason),
		Message:        status.Message,
		Version:        h.version,
		UptimeSeconds:  int64(time.Since(h.startTime).Seconds()),
		DevicesManaged: count,
	}
	if bridge != nil {
		m := bridge.Metrics()
		msg.Statistics = &m
	}
	return msg
}

// publishHealth publishes the health message with status and reason
// overridden.
func (h *Hub) publishHealth(status, reason, message string) error {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return nil
	}

	msg := h.Health()
	msg.Status = status
	msg.Reason = reason
	msg.Message = message

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling health: %w", err)
	}
	return h.publisher.Publish(mqtt.Topics{}.Health(), payload, 1, true)
}

func (h *Hub) logInfo(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Info(msg, keysAndValues...)
	}
}

func (h *Hub) logWarn(msg string, keysAndValues ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, keysAndValues...)
	}
}

func (h *Hub) logError(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, "error", err)
	}
}
