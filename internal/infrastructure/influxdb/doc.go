// Package influxdb stores Toon telemetry in InfluxDB v2.
//
// Each poll of the bridge produces thermostat, energy and per-channel
// points tagged with the child device ID:
//
//	toon_thermostat,device_id=toon-display temperature_c=20.5,setpoint_c=21,...
//	toon_energy,device_id=toon-display power_watts=412,gas_usage=0,...
//	toon_channel,device_id=toon-plug-1,channel=power_usage value=37
//
// The integration is optional. With influxdb.enabled false, Connect returns
// ErrDisabled and the bridge runs without metrics.
package influxdb
