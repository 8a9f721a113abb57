// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"slices"
	"sync"
)

// CaptureTransport records every frame it is sent instead of transmitting.
type CaptureTransport struct {
	mu     sync.Mutex
	frames [][]byte
	fail   error
	closed bool
}

// Send stores a copy of frame. It returns the configured failure, if any.
func (c *CaptureTransport) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("capture transport closed")
	}
	c.frames = append(c.frames, slices.Clone(frame))
	return c.fail
}

func (c *CaptureTransport) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// FailWith makes every following Send return err after recording the frame.
func (c *CaptureTransport) FailWith(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// Count returns the number of frames received.
func (c *CaptureTransport) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Last returns the most recent frame, or nil.
func (c *CaptureTransport) Last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}
