package bridgekit

import (
	"log/slog"

	"github.com/c0deZ3R0/go-bridge-kit/journal"
)

// A patch-based update is sent only when the encoded operations fit
// within max(DefaultPatchSizeFloor, DefaultPatchSizeRatio × snapshot
// encoding); otherwise the surface gets a fresh STATE_INIT. The floor
// keeps small states on the patch path, where a handful of operations
// always out-weighs the snapshot itself but either message is cheap.
const (
	DefaultPatchSizeRatio = 0.75
	DefaultPatchSizeFloor = 512
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger. Defaults to logging.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithErrorHandler installs the error channel for failures the bridge
// absorbs rather than returns: decode errors, protocol violations,
// transport send failures, and reducer errors from surface-originated
// events. The handler runs synchronously on the delivery path and must
// not block.
func WithErrorHandler(handler func(error)) Option {
	return func(b *Bridge) {
		b.errorHandler = handler
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(collector MetricsCollector) Option {
	return func(b *Bridge) {
		b.metrics = collector
	}
}

// WithPatchSizeRatio overrides DefaultPatchSizeRatio. Values outside
// (0, 1] are ignored.
func WithPatchSizeRatio(ratio float64) Option {
	return func(b *Bridge) {
		if ratio > 0 && ratio <= 1 {
			b.patchSizeRatio = ratio
		}
	}
}

// WithPatchSizeFloor overrides DefaultPatchSizeFloor. Negative values
// are ignored.
func WithPatchSizeFloor(bytes int) Option {
	return func(b *Bridge) {
		if bytes >= 0 {
			b.patchSizeFloor = bytes
		}
	}
}

// WithJournal records every wire message crossing the bridge to the given
// recorder. Journal failures are logged and never affect delivery.
func WithJournal(recorder journal.Recorder) Option {
	return func(b *Bridge) {
		b.journal = recorder
	}
}
