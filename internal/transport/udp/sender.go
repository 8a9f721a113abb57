// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	applog "visualizer/internal/log"
)

const (
	// MaxDatagram is the largest IPv4 UDP payload.
	MaxDatagram = 65507
	// sendTimeout bounds a write so a blocked socket cannot stall the render loop.
	sendTimeout = 50 * time.Millisecond
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp: sender closed")

// UDPSender writes datagrams to one LED controller.
type UDPSender struct {
	target string

	mu   sync.Mutex // guards conn against Close
	conn *net.UDPConn

	sent atomic.Uint64
}

var _ io.Closer = (*UDPSender)(nil)

// NewUDPSender dials targetAddress ("host:port"). UDP has no handshake, so
// an unreachable controller only shows up as failed sends.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDPSender: Sending to %s from %s", raddr, conn.LocalAddr())
	return &UDPSender{target: raddr.String(), conn: conn}, nil
}

// Send transmits data as a single datagram.
func (s *UDPSender) Send(data []byte) error {
	if len(data) > MaxDatagram {
		return fmt.Errorf("udp: %d byte packet exceeds the %d byte datagram limit", len(data), MaxDatagram)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrClosed
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return fmt.Errorf("udp: setting write deadline: %w", err)
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("failed to send UDP packet to %s: %w", s.target, err)
	}
	s.sent.Add(1)
	return nil
}

// Sent returns the number of datagrams written.
func (s *UDPSender) Sent() uint64 { return s.sent.Load() }

func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	applog.Infof("UDPSender: Closing %s after %d packets", s.target, s.sent.Load())
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
