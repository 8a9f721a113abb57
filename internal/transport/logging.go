// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "visualizer/internal/log"
)

var loggingLog = applog.For("LoggingTransport")

// LoggingTransport discards frames, logging each one at debug level. It
// stands in for hardware during development.
type LoggingTransport struct {
	frames atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame size and a short prefix.
func (lt *LoggingTransport) Send(frame []byte) error {
	n := lt.frames.Add(1)
	if loggingLog.Enabled(applog.LevelDebug) {
		loggingLog.Debugf("frame %d (%d bytes) % x", n, len(frame), frame[:min(len(frame), 12)])
	}
	return nil
}

// Frames returns how many frames have been sent.
func (lt *LoggingTransport) Frames() uint64 { return lt.frames.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	loggingLog.Infof("Closed after %d frames", lt.frames.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
