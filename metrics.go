package bridgekit

import "time"

// MetricsCollector provides hooks for collecting bridge traffic metrics
type MetricsCollector interface {
	// RecordMessageSent records an outbound message by type and encoded size
	RecordMessageSent(messageType string, bytes int)

	// RecordMessageReceived records an inbound message by type
	RecordMessageReceived(messageType string)

	// RecordDecodeError records a dropped undecodable message
	RecordDecodeError()

	// RecordDispatch records how long a host-side dispatch took
	RecordDispatch(storeKey string, duration time.Duration)

	// RecordBroadcast records a fan-out of one store transition to surfaces
	RecordBroadcast(storeKey string, surfaces int)
}

// NoOpMetricsCollector is a default implementation that does nothing
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordMessageSent(messageType string, bytes int)   {}
func (n *NoOpMetricsCollector) RecordMessageReceived(messageType string)          {}
func (n *NoOpMetricsCollector) RecordDecodeError()                                {}
func (n *NoOpMetricsCollector) RecordDispatch(storeKey string, dur time.Duration) {}
func (n *NoOpMetricsCollector) RecordBroadcast(storeKey string, surfaces int)     {}
