// Package metrics exposes RF Socket Core counters to Prometheus.
//
// Metrics is an event sink: command events feed the command counters and
// latency histogram, registry events keep the socket gauge current. The
// HTTP layer records request counts through ObserveHTTP. Everything is
// registered on a private registry served by Handler, so tests can create
// as many instances as they like.
package metrics
