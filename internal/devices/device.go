package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-toon/internal/toon"
)

// Channel names.
const (
	ChannelTemperature       = "temperature"
	ChannelSetpoint          = "setpoint"
	ChannelSetpointMode      = "setpoint_mode"
	ChannelModulationLevel   = "modulation_level"
	ChannelHeating           = "heating"
	ChannelTapWater          = "tapwater"
	ChannelPreHeating        = "preheating"
	ChannelGasMeterReading   = "gas_meter_reading"
	ChannelGasUsage          = "gas_usage"
	ChannelPowerUsage        = "power_usage"
	ChannelPowerMeterReading = "power_meter_reading"
	ChannelDayUsage          = "day_usage"
	ChannelSwitch            = "switch"
	ChannelConnected         = "connected"
)

// Channels maps channel names to scalar values (float64, int, bool, string).
type Channels map[string]any

// Publisher sends retained state messages to the bus.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MetricsWriter receives numeric readings on every poll.
type MetricsWriter interface {
	WriteChannel(deviceID, channel string, value float64)
	WriteThermostat(deviceID string, temperature, setpoint float64, modulation int, burnerOn bool)
	WriteEnergy(deviceID string, powerWatts, powerMeterKWh, gasUsage, gasMeterM3 float64)
}

// HistoryRecorder stores changed channel values.
type HistoryRecorder interface {
	Record(ctx context.Context, deviceID string, changed Channels, at time.Time) error
}

// Logger is the logging surface devices need.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

// Sinks are the outputs a device writes to. All fields are optional.
type Sinks struct {
	Publisher Publisher
	Metrics   MetricsWriter
	History   HistoryRecorder
	Logger    Logger
}

// Device is a child handler of the bridge with identity and last-known state.
type Device interface {
	toon.Handler
	ID() string
	Type() string
	Name() string
	Snapshot() Snapshot
}

// Snapshot is a device's last applied channel values.
type Snapshot struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Channels  Channels  `json:"channels"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// StateMessage is the retained payload on graylogic/state/toon/{id}.
type StateMessage struct {
	DeviceID  string    `json:"device_id"`
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	Channels  Channels  `json:"channels"`
	Timestamp time.Time `json:"timestamp"`
}

// base carries identity and change tracking shared by all device types.
type base struct {
	id    string
	typ   string
	name  string
	sinks Sinks

	mu        sync.RWMutex
	last      Channels
	updatedAt time.Time
	rev       uint64
}

func (b *base) ID() string   { return b.id }
func (b *base) Type() string { return b.typ }
func (b *base) Name() string { return b.name }

// Snapshot returns a copy of the last applied channel values.
func (b *base) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Snapshot{
		ID:        b.id,
		Type:      b.typ,
		Name:      b.name,
		Channels:  maps.Clone(b.last),
		UpdatedAt: b.updatedAt,
	}
}

// apply stores channels and, when anything changed, publishes and records
// the change. The lock is released before any sink is called. If a sink
// fails the previous state is restored, so the next identical snapshot is
// seen as a change and delivered again.
func (b *base) apply(ctx context.Context, channels Channels) error {
	now := time.Now().UTC()

	b.mu.Lock()
	changed := diff(b.last, channels)
	if len(changed) == 0 {
		b.mu.Unlock()
		return nil
	}
	prev, prevAt := b.last, b.updatedAt
	b.rev++
	rev := b.rev
	b.last = maps.Clone(channels)
	b.updatedAt = now
	b.mu.Unlock()

	if b.sinks.Logger != nil {
		b.sinks.Logger.Debug("device channels changed", "device_id", b.id, "changed", len(changed))
	}

	if err := b.deliver(ctx, channels, changed, now); err != nil {
		b.mu.Lock()
		if b.rev == rev {
			b.last, b.updatedAt = prev, prevAt
		}
		b.mu.Unlock()
		return err
	}
	return nil
}

// deliver sends a change to the state topic and the history store.
func (b *base) deliver(ctx context.Context, channels, changed Channels, now time.Time) error {
	if b.sinks.Publisher != nil {
		payload, err := json.Marshal(StateMessage{
			DeviceID:  b.id,
			Type:      b.typ,
			Name:      b.name,
			Channels:  channels,
			Timestamp: now,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPublish, err)
		}
		if err := b.sinks.Publisher.PublishRetained(mqtt.Topics{}.State(b.id), payload); err != nil {
			return fmt.Errorf("%w: %w", ErrPublish, err)
		}
	}

	if b.sinks.History != nil {
		if err := b.sinks.History.Record(ctx, b.id, changed, now); err != nil {
			return fmt.Errorf("%w: %w", ErrHistory, err)
		}
	}

	return nil
}

// diff returns the entries of next that are new or differ from prev.
func diff(prev, next Channels) Channels {
	changed := make(Channels)
	for k, v := range next {
		if old, ok := prev[k]; !ok || old != v {
			changed[k] = v
		}
	}
	return changed
}

var (
	_ Device = (*Display)(nil)
	_ Device = (*Plug)(nil)
)
