package devices

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

// Plug is one smart plug paired with the display.
type Plug struct {
	base
	devUUID string
}

// NewPlug creates a plug device that tracks the plug with devUUID.
func NewPlug(id, name, devUUID string, sinks Sinks) *Plug {
	return &Plug{
		base:    base{id: id, typ: config.DeviceTypePlug, name: name, sinks: sinks},
		devUUID: devUUID,
	}
}

// DevUUID returns the Toon device UUID of the plug.
func (p *Plug) DevUUID() string {
	return p.devUUID
}

// UpdateChannels implements toon.Handler.
func (p *Plug) UpdateChannels(ctx context.Context, state *toonapi.State) error {
	status, ok := state.Plug(p.devUUID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlugNotFound, p.devUUID)
	}

	if m := p.sinks.Metrics; m != nil {
		m.WriteChannel(p.id, ChannelPowerUsage, status.CurrentUsage)
		m.WriteChannel(p.id, ChannelDayUsage, status.DayUsage)
	}

	return p.apply(ctx, PlugChannels(status))
}

// PlugChannels derives a plug's channel values from its status.
func PlugChannels(status toonapi.DeviceStatus) Channels {
	return Channels{
		ChannelPowerUsage: status.CurrentUsage,
		ChannelDayUsage:   status.DayUsage,
		ChannelSwitch:     status.CurrentState == 1,
		ChannelConnected:  status.IsConnected == 1,
	}
}
