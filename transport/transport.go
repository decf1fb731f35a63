// Package transport defines the serial message channel the bridge is
// handed by its caller. The bridge itself opens no connections and binds
// no ports; it only sends and receives text messages over a Channel.
package transport

// Channel is a full-duplex, in-order text message channel between the
// host and one surface.
//
// Implementations must deliver messages in the order they were sent: the
// protocol carries no sequence numbers and relies entirely on the
// channel's ordering guarantee. A transport that can reorder messages
// must not be adapted to this interface without adding its own ordering
// layer underneath.
type Channel interface {
	// Send transmits one newline-free text message to the peer.
	Send(msg string) error

	// OnMessage installs the inbound handler. Messages arriving before a
	// handler is installed are buffered and delivered, in order, when it
	// is. Only one handler is active; installing a new one replaces the
	// previous.
	OnMessage(handler func(msg string))

	// Close tears the channel down. Close is idempotent.
	Close() error
}
