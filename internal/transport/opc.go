// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"

	"visualizer/internal/color"
	applog "visualizer/internal/log"

	"github.com/kellydunn/go-opc"
)

var opcLog = applog.For("OPCTransport")

// opcSender is the subset of *opc.Client used to push messages.
type opcSender interface {
	Send(m *opc.Message) error
}

// OPCTransport forwards frames to an Open Pixel Control server such as a
// Fadecandy. Pixels keep their wire (serpentine) order; only the color byte
// order is converted to the RGB that OPC expects.
type OPCTransport struct {
	addr    string
	channel uint8
	order   color.Order

	mu     sync.Mutex
	client opcSender
}

var _ Transport = (*OPCTransport)(nil)

// DialOPC connects to the OPC server at addr ("host:7890").
func DialOPC(addr string, channel uint8, order color.Order) (*OPCTransport, error) {
	oc := opc.NewClient()
	if err := oc.Connect("tcp", addr); err != nil {
		return nil, fmt.Errorf("failed to connect to OPC server '%s': %w", addr, err)
	}
	opcLog.Infof("Connected to %s (channel %d)", addr, channel)
	return &OPCTransport{addr: addr, channel: channel, order: order, client: oc}, nil
}

// Send converts frame into one set-pixel-colors message. The trailing
// end-of-frame byte is not part of the pixel data.
func (t *OPCTransport) Send(frame []byte) error {
	m := pixelMessage(frame, t.channel, t.order)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return fmt.Errorf("OPC transport to '%s' is closed", t.addr)
	}
	if err := t.client.Send(m); err != nil {
		return fmt.Errorf("failed to send OPC message to '%s': %w", t.addr, err)
	}
	return nil
}

// Close drops the client. go-opc exposes no way to close its connection.
func (t *OPCTransport) Close() error {
	t.mu.Lock()
	t.client = nil
	t.mu.Unlock()
	opcLog.Infof("Closed %s", t.addr)
	return nil
}

func pixelMessage(frame []byte, channel uint8, order color.Order) *opc.Message {
	pixels := len(frame) / 3
	m := opc.NewMessage(channel)
	m.SetLength(uint16(pixels * 3))
	for i := range pixels {
		b := frame[i*3 : i*3+3]
		if order == color.RGB {
			m.SetPixelColor(i, b[0], b[1], b[2])
		} else {
			m.SetPixelColor(i, b[1], b[0], b[2])
		}
	}
	return m
}
