// SPDX-License-Identifier: MIT
package transport

import "errors"

// Transport delivers serialized LED frames to a physical or network sink.
// Send must not retain frame after it returns; the scheduler reuses the buffer.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(frame []byte) error
	Close() error
}

// Fanout sends every frame to each of its transports in order.
type Fanout []Transport

var _ Transport = Fanout(nil)

// Send forwards frame to every transport. A failing transport does not stop
// the others; all errors are joined.
func (f Fanout) Send(frame []byte) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
