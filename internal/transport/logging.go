// SPDX-License-Identifier: MIT
package transport

import (
	"strconv"

	applog "prosody/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each frame. It is used when no viewer server is running.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data at debug level.
func (lt *LoggingTransport) Send(data any) error {
	switch f := data.(type) {
	case *Frame:
		cursor := "none"
		if f.Cursor != nil {
			cursor = formatSeconds(*f.Cursor)
		}
		applog.Debugf("Transport: Frame %d sample=%q cursor=%s charts=%d", f.Seq, f.Sample, cursor, len(f.Charts))
	default:
		applog.Debugf("Transport: Received (%T): %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64) + "s"
}
