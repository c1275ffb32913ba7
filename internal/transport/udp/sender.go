// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "prosody/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender closed")

// UDPSender writes cursor packets to one connected UDP peer.
type UDPSender struct {
	target *net.UDPAddr

	mu   sync.Mutex // guards conn against Close during a write
	conn *net.UDPConn

	packets atomic.Uint64
	failed  atomic.Uint64
}

// NewUDPSender dials targetAddress ("host:port", e.g. "127.0.0.1:9090").
// No local port is bound.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve cursor target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("dial cursor target %q: %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Publishing cursor to %s", conn.RemoteAddr())
	return &UDPSender{target: target, conn: conn}, nil
}

// Target returns the resolved destination address.
func (s *UDPSender) Target() string {
	return s.target.String()
}

// Send writes data as a single datagram. It is safe for concurrent use.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		// The first failure is a warning; repeats while the peer is down are debug noise.
		if s.failed.Add(1) == 1 {
			applog.Warnf("UDP Sender: Error sending packet: %v", err)
		} else {
			applog.Debugf("UDP Sender: Error sending packet: %v", err)
		}
		return fmt.Errorf("send cursor packet: %w", err)
	}
	s.failed.Store(0)
	s.packets.Add(1)
	return nil
}

// Packets returns the number of datagrams written.
func (s *UDPSender) Packets() uint64 {
	return s.packets.Load()
}

// Close closes the socket. Further calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	applog.Debugf("UDP Sender: Closing connection to %s after %d packets", s.target, s.packets.Load())
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("close cursor socket: %w", err)
	}
	return nil
}

var (
	_ Sender                     = (*UDPSender)(nil)
	_ interface{ Close() error } = (*UDPSender)(nil)
)
