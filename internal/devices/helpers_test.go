package devices

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/nerrad567/gray-logic-toon/internal/toonapi"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRetained(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) WriteChannel(deviceID, channel string, value float64) {
	m.Called(deviceID, channel, value)
}

func (m *mockMetrics) WriteThermostat(deviceID string, temperature, setpoint float64, modulation int, burnerOn bool) {
	m.Called(deviceID, temperature, setpoint, modulation, burnerOn)
}

func (m *mockMetrics) WriteEnergy(deviceID string, powerWatts, powerMeterKWh, gasUsage, gasMeterM3 float64) {
	m.Called(deviceID, powerWatts, powerMeterKWh, gasUsage, gasMeterM3)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Record(ctx context.Context, deviceID string, changed Channels, at time.Time) error {
	args := m.Called(ctx, deviceID, changed, at)
	return args.Error(0)
}

// displaySnapshot returns a snapshot with every display section present.
func displaySnapshot() *toonapi.State {
	return &toonapi.State{
		Thermostat: &toonapi.ThermostatInfo{
			CurrentDisplayTemp:     2050,
			CurrentSetpoint:        2100,
			ActiveState:            toonapi.ActiveStateHome,
			CurrentModulationLevel: 40,
			BurnerInfo:             toonapi.BurnerHeating,
		},
		Power: &toonapi.PowerUsage{
			Value:           412,
			MeterReading:    1200000,
			MeterReadingLow: 800000,
		},
		Gas: &toonapi.GasUsage{
			Value:        0,
			MeterReading: 2345678,
		},
		Devices: &toonapi.DeviceStatusInfo{
			Device: []toonapi.DeviceStatus{
				{DevUUID: "plug-uuid-1", Name: "Washer", CurrentState: 1, CurrentUsage: 37, DayUsage: 120, IsConnected: 1},
				{DevUUID: "plug-uuid-2", Name: "Fridge", CurrentState: 0, IsConnected: 0},
			},
		},
	}
}
