// Package discovery finds the Toon display and its paired smart plugs and
// announces them on graylogic/discovery/toon.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-toon/internal/devices"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

// Protocol is the protocol tag of discovered devices.
const Protocol = "toon"

var (
	displayCapabilities = []string{
		devices.ChannelTemperature,
		devices.ChannelSetpoint,
		devices.ChannelSetpointMode,
		devices.ChannelModulationLevel,
		devices.ChannelHeating,
		devices.ChannelTapWater,
		devices.ChannelPreHeating,
		devices.ChannelGasMeterReading,
		devices.ChannelGasUsage,
		devices.ChannelPowerUsage,
		devices.ChannelPowerMeterReading,
	}
	plugCapabilities = []string{
		devices.ChannelPowerUsage,
		devices.ChannelDayUsage,
		devices.ChannelSwitch,
		devices.ChannelConnected,
	}

	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
)

// Collector takes one snapshot from Toon.
type Collector interface {
	Collect(ctx context.Context) (*toonapi.State, error)
}

// Publisher sends non-retained messages to the bus.
type Publisher interface {
	PublishEvent(topic string, payload []byte) error
}

// Inventory lists the devices already configured on the bridge.
type Inventory interface {
	Devices() []devices.Device
}

// Logger is the logging surface discovery needs.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Message is the payload on graylogic/discovery/toon.
type Message struct {
	ScanID    string             `json:"scan_id"`
	Timestamp time.Time          `json:"timestamp"`
	Bridge    string             `json:"bridge"`
	Devices   []DiscoveredDevice `json:"devices"`
}

// DiscoveredDevice is one display or plug found in a snapshot.
type DiscoveredDevice struct {
	Protocol      string   `json:"protocol"`
	Type          string   `json:"type"`
	Address       string   `json:"address"`
	Capabilities  []string `json:"capabilities"`
	Product       string   `json:"product,omitempty"`
	SuggestedID   string   `json:"suggested_id"`
	SuggestedName string   `json:"suggested_name,omitempty"`
	Configured    bool     `json:"configured"`
}

// Options configures a Service.
type Options struct {
	BridgeID  string
	Collector Collector // required
	Publisher Publisher // optional
	Inventory Inventory // optional
	Logger    Logger    // optional
}

// Service runs discovery scans on demand.
type Service struct {
	opts Options
}

// NewService creates a discovery service.
func NewService(opts Options) (*Service, error) {
	if opts.Collector == nil {
		return nil, fmt.Errorf("discovery: collector is required")
	}
	return &Service{opts: opts}, nil
}

// Scan collects one snapshot and reports what it contains. The result is
// published when a publisher is set; a publish failure is logged and does
// not fail the scan.
func (s *Service) Scan(ctx context.Context) (*Message, error) {
	state, err := s.opts.Collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery scan: %w", err)
	}

	msg := &Message{
		ScanID:    uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Bridge:    s.opts.BridgeID,
		Devices:   Discover(state),
	}
	s.markConfigured(msg.Devices)

	if s.opts.Logger != nil {
		s.opts.Logger.Info("discovery scan complete", "scan_id", msg.ScanID, "devices", len(msg.Devices))
	}

	if s.opts.Publisher != nil {
		payload, err := json.Marshal(msg)
		if err == nil {
			err = s.opts.Publisher.PublishEvent(mqtt.Topics{}.Discovery(), payload)
		}
		if err != nil && s.opts.Logger != nil {
			s.opts.Logger.Warn("failed to publish discovery result", "scan_id", msg.ScanID, "error", err)
		}
	}

	return msg, nil
}

// Discover lists the display and every plug in a snapshot.
func Discover(state *toonapi.State) []DiscoveredDevice {
	if state == nil {
		return nil
	}

	var found []DiscoveredDevice
	if state.Thermostat != nil || state.Power != nil || state.Gas != nil {
		a := state.Agreement
		id := "toon-display"
		if a.DisplayCommonName != "" {
			id = "toon-" + slug(a.DisplayCommonName)
		}
		found = append(found, DiscoveredDevice{
			Protocol:      Protocol,
			Type:          config.DeviceTypeDisplay,
			Address:       a.AgreementID,
			Capabilities:  displayCapabilities,
			Product:       a.DisplayHardwareVersion,
			SuggestedID:   id,
			SuggestedName: strings.TrimSpace(a.Street + " " + a.HouseNumber),
		})
	}

	for _, p := range state.Plugs() {
		id := "toon-plug-" + slug(p.DevUUID)
		if p.Name != "" {
			id = "toon-plug-" + slug(p.Name)
		}
		found = append(found, DiscoveredDevice{
			Protocol:      Protocol,
			Type:          config.DeviceTypePlug,
			Address:       p.DevUUID,
			Capabilities:  plugCapabilities,
			Product:       p.DevType,
			SuggestedID:   id,
			SuggestedName: p.Name,
		})
	}
	return found
}

func (s *Service) markConfigured(found []DiscoveredDevice) {
	if s.opts.Inventory == nil {
		return
	}

	haveDisplay := false
	plugs := make(map[string]bool)
	for _, d := range s.opts.Inventory.Devices() {
		switch dev := d.(type) {
		case *devices.Display:
			haveDisplay = true
		case *devices.Plug:
			plugs[dev.DevUUID()] = true
		}
	}

	for i := range found {
		switch found[i].Type {
		case config.DeviceTypeDisplay:
			found[i].Configured = haveDisplay
		case config.DeviceTypePlug:
			found[i].Configured = plugs[found[i].Address]
		}
	}
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
