// Package devices implements the child devices of the Toon bridge.
//
// Two device types exist. A Display exposes the thermostat and energy
// readings of the Toon display itself. A Plug exposes one paired smart plug,
// located in each snapshot by its device UUID.
//
// Both implement toon.Handler. On every snapshot they:
//
//  1. derive their channel values
//  2. write numeric readings to the metrics sink (every poll)
//  3. publish a retained StateMessage on graylogic/state/toon/{id}, and
//     record history, only when a channel value changed
//
// Every sink is optional. A device with no sinks still tracks its last
// channel values for the admin API.
package devices
