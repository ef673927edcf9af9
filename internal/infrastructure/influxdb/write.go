package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementChannel    = "toon_channel"
	MeasurementThermostat = "toon_thermostat"
	MeasurementEnergy     = "toon_energy"
)

// WriteChannel records one numeric channel value of a child device.
//
// Example:
//
//	client.WriteChannel("toon-display", "temperature", 20.5)
func (c *Client) WriteChannel(deviceID, channel string, value float64) {
	c.WritePoint(MeasurementChannel,
		map[string]string{
			"device_id": deviceID,
			"channel":   channel,
		},
		map[string]interface{}{
			"value": value,
		},
	)
}

// WriteThermostat records a thermostat sample. Temperatures are in °C,
// modulation in percent.
func (c *Client) WriteThermostat(deviceID string, temperature, setpoint float64, modulation int, burnerOn bool) {
	c.WritePoint(MeasurementThermostat,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{
			"temperature_c": temperature,
			"setpoint_c":    setpoint,
			"modulation":    modulation,
			"burner_on":     burnerOn,
		},
	)
}

// WriteEnergy records an energy reading. Meter values are only written when
// positive; a zero meter means the display has not reported one.
func (c *Client) WriteEnergy(deviceID string, powerWatts, powerMeterKWh, gasUsage, gasMeterM3 float64) {
	fields := map[string]interface{}{
		"power_watts": powerWatts,
		"gas_usage":   gasUsage,
	}
	if powerMeterKWh > 0 {
		fields["power_meter_kwh"] = powerMeterKWh
	}
	if gasMeterM3 > 0 {
		fields["gas_meter_m3"] = gasMeterM3
	}

	c.WritePoint(MeasurementEnergy, map[string]string{"device_id": deviceID}, fields)
}

// WritePoint writes a point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
