package devices

import (
	"context"

	"github.com/nerrad567/gray-logic-toon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

// Setpoint modes derived from the thermostat's active program state.
const (
	ModeManual  = "manual"
	ModeComfort = "comfort"
	ModeHome    = "home"
	ModeSleep   = "sleep"
	ModeAway    = "away"
	ModeHoliday = "holiday"
)

// Display is the Toon display: thermostat, boiler and energy meters.
type Display struct {
	base
}

// NewDisplay creates the display device.
func NewDisplay(id, name string, sinks Sinks) *Display {
	return &Display{base: base{id: id, typ: config.DeviceTypeDisplay, name: name, sinks: sinks}}
}

// UpdateChannels implements toon.Handler.
func (d *Display) UpdateChannels(ctx context.Context, state *toonapi.State) error {
	if state == nil || (state.Thermostat == nil && state.Power == nil && state.Gas == nil) {
		return ErrNoDisplayData
	}

	channels := DisplayChannels(state)
	d.writeMetrics(state)
	return d.apply(ctx, channels)
}

// DisplayChannels derives the display's channel values from a snapshot.
// Sections missing from the snapshot contribute no channels.
func DisplayChannels(state *toonapi.State) Channels {
	ch := make(Channels)

	if t := state.Thermostat; t != nil {
		ch[ChannelTemperature] = t.Temperature()
		ch[ChannelSetpoint] = t.Setpoint()
		ch[ChannelSetpointMode] = setpointMode(t.ActiveState)
		ch[ChannelModulationLevel] = t.CurrentModulationLevel
		ch[ChannelHeating] = t.BurnerInfo == toonapi.BurnerHeating
		ch[ChannelTapWater] = t.BurnerInfo == toonapi.BurnerTapWater
		ch[ChannelPreHeating] = t.BurnerInfo == toonapi.BurnerPreHeating
	}
	if g := state.Gas; g != nil {
		ch[ChannelGasUsage] = g.Value
		ch[ChannelGasMeterReading] = g.MeterReading / 1000
	}
	if p := state.Power; p != nil {
		ch[ChannelPowerUsage] = p.Value
		ch[ChannelPowerMeterReading] = (p.MeterReading + p.MeterReadingLow) / 1000
	}

	return ch
}

func (d *Display) writeMetrics(state *toonapi.State) {
	m := d.sinks.Metrics
	if m == nil {
		return
	}

	if t := state.Thermostat; t != nil {
		m.WriteThermostat(d.id, t.Temperature(), t.Setpoint(), t.CurrentModulationLevel, t.BurnerInfo != toonapi.BurnerOff)
	}
	if state.Power != nil || state.Gas != nil {
		var power, powerMeter, gas, gasMeter float64
		if p := state.Power; p != nil {
			power = p.Value
			powerMeter = (p.MeterReading + p.MeterReadingLow) / 1000
		}
		if g := state.Gas; g != nil {
			gas = g.Value
			gasMeter = g.MeterReading / 1000
		}
		m.WriteEnergy(d.id, power, powerMeter, gas, gasMeter)
	}
}

func setpointMode(activeState int) string {
	switch activeState {
	case toonapi.ActiveStateComfort:
		return ModeComfort
	case toonapi.ActiveStateHome:
		return ModeHome
	case toonapi.ActiveStateSleep:
		return ModeSleep
	case toonapi.ActiveStateAway:
		return ModeAway
	case toonapi.ActiveStateHoliday:
		return ModeHoliday
	default:
		return ModeManual
	}
}
