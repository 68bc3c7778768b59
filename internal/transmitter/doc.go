// Package transmitter sends codes to RF power sockets.
//
// The radio itself is driven by an external executable (for 433 MHz "XY"
// sockets, a trans-xy.py style script). This package hides that behind the
// Transmitter interface so callers see only success or a classified error:
// exit codes and process handling never leak out.
//
// The command line contract is:
//
//	<binary> <args...> <pin> <code> -b <bits> -r <repeat>
//
// Exit status 0 means the code was sent.
//
// One radio can only send one code at a time, so transmissions through a
// Command are serialised. Waiting for the radio honours context
// cancellation.
package transmitter
