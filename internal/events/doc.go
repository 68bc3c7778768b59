// Package events fans registry and dispatch activity out to observers.
//
// The socket registry and the command dispatcher publish an Event for every
// create, delete and transmission. A Bus delivers each event to its sinks
// (MQTT, InfluxDB, the SQLite audit log, Prometheus, WebSocket clients).
// Sink failures are logged and never reach the caller: an event is a record
// of what happened, not part of the operation.
package events
