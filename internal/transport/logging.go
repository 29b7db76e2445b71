// SPDX-License-Identifier: MIT
package transport

import (
	applog "pluck/internal/log"
)

// LoggingTransport implements the Transport interface by logging frame
// summaries at debug level. It is used when no network transport is enabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch f := data.(type) {
	case *Frame:
		applog.Debugf("LOG_TRANSPORT: frame %d peak=%.3f rms=%.3f dominant=%.1fHz onset=%t",
			f.Seq, f.Peak, f.RMS, f.PeakHz, f.Onset)
	default:
		applog.Debugf("LOG_TRANSPORT: Received (%T)", data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
