// Package mqtt connects the Toon bridge to the Gray Logic message bus.
//
// The bridge publishes on the flat topic scheme
// graylogic/{category}/toon/{address}:
//
//	graylogic/state/toon/{device_id}      retained channel state per child
//	graylogic/health/toon                 retained bridge status, also the LWT
//	graylogic/discovery/toon              discovered Toon devices
//	graylogic/command/toon/{device_id}    inbound commands
//	graylogic/ack/toon/{device_id}        command acknowledgements
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1, handler)
//
// Subscriptions survive reconnects. Handlers are wrapped with panic
// recovery; their errors are logged, never returned to the broker.
package mqtt
