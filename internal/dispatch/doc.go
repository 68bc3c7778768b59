// Package dispatch turns "switch socket X on" into a radio transmission.
//
// The Dispatcher resolves the socket through the registry, picks the on or
// off code, fills in bits and repeat from the registry defaults when the
// socket does not override them, and hands the request to a transmitter.
//
// Dispatch is fire-and-forget: the socket's actual switch state is not
// modelled and nothing is written back to the registry. There are no
// application-level retries; the repeat count is the radio's own
// redundancy.
//
// Every transmission attempt, successful or not, is published as a
// socket.command (or socket.all_off) event.
package dispatch
