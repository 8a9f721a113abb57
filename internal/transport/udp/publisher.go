// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/transport"
)

// HeaderSize is the length of the framed packet header.
const HeaderSize = 4 + 8 + 2

// ErrShortPacket is returned by ParsePacket for truncated datagrams.
var ErrShortPacket = errors.New("udp: short packet")

// Publisher sends one datagram per LED frame. In framed mode each datagram
// carries a header so receivers can detect loss and reordering; in raw mode
// the frame bytes are sent as is, which is what most networked pixel
// controllers expect.
type Publisher struct {
	sender *UDPSender
	raw    bool

	mu           sync.Mutex
	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

var _ transport.Transport = (*Publisher)(nil)

// NewPublisher wraps sender. The publisher owns it from here on.
func NewPublisher(sender *UDPSender, raw bool) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	applog.Infof("UDPPublisher: Initializing (raw: %v)", raw)
	return &Publisher{
		sender:       sender,
		raw:          raw,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Dial resolves address and returns a publisher sending to it.
func Dial(address string, raw bool) (*Publisher, error) {
	s, err := NewUDPSender(address)
	if err != nil {
		return nil, err
	}
	return NewPublisher(s, raw)
}

/*
Framed packet structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<---- N Bytes ---->|
+-------------------+-----------------------+---------------+-------------------+
|  Sequence Number  |       Timestamp       |  Frame Length |    LED frame      |
|      (uint32)     |  (int64, unix nanos)  |    (uint16)   | incl. 0xFF marker |
+-------------------+-----------------------+---------------+-------------------+
*/

// Send transmits frame as a single datagram.
func (p *Publisher) Send(frame []byte) error {
	if p.raw {
		return p.sender.Send(frame)
	}
	if len(frame) > 0xFFFF {
		return fmt.Errorf("UDPPublisher: frame of %d bytes does not fit a datagram", len(frame))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	p.packetBuffer.Reset()
	binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(frame)))
	p.packetBuffer.Write(frame)

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	applog.Debugf("UDPPublisher: Close called")
	return p.sender.Close()
}

// ParsePacket splits a framed datagram into its header fields and frame.
func ParsePacket(b []byte) (seq uint32, timestamp int64, frame []byte, err error) {
	if len(b) < HeaderSize {
		return 0, 0, nil, ErrShortPacket
	}
	seq = binary.BigEndian.Uint32(b[0:4])
	timestamp = int64(binary.BigEndian.Uint64(b[4:12]))
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b)-HeaderSize < n {
		return 0, 0, nil, ErrShortPacket
	}
	return seq, timestamp, b[HeaderSize : HeaderSize+n], nil
}
