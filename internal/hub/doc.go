// Package hub hosts the Toon bridge inside Gray Logic.
//
// The Hub implements toon.Host: it owns the child devices the bridge fans
// snapshots out to, and turns every status the bridge reports into a
// retained message on graylogic/health/toon. It also takes commands from
// graylogic/command/toon/{device_id} and acknowledges them on
// graylogic/ack/toon/{device_id}.
//
// A HealthReporter republishes the current status on a fixed interval so
// the health topic carries fresh uptime and poll statistics.
package hub
