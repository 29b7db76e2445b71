// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "pluck/internal/log"
	"pluck/internal/transport"
)

var ErrSenderClosed = errors.New("UDP sender is closed")

// UDPSender sends visualization frames as binary packets over UDP.
type UDPSender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex // Protects conn and packet during Send/Close
	closed     bool
	packet     []byte // Reused encode buffer
}

// NewUDPSender creates a new UDPSender targeting the specified address.
// The address should be in the format "host:port", e.g., "127.0.0.1:9090".
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// No local address is needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr().String())

	return &UDPSender{
		conn:       conn,
		targetAddr: udpAddr,
	}, nil
}

// Send transmits data as one UDP packet. A *transport.Frame is encoded with
// its spectrum; a []byte is written as is.
func (s *UDPSender) Send(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSenderClosed
	}

	var payload []byte
	switch v := data.(type) {
	case *transport.Frame:
		var err error
		s.packet, err = AppendPacket(s.packet[:0], v.Seq, v.Time, v.Spectrum)
		if err != nil {
			return err
		}
		payload = s.packet
	case []byte:
		payload = v
	default:
		return fmt.Errorf("UDP Sender: unsupported payload %T", data)
	}

	if _, err := s.conn.Write(payload); err != nil {
		applog.Debugf("UDP Sender: Error sending packet: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.conn != nil {
		applog.Infof("UDP Sender: Closing connection to %s", s.conn.RemoteAddr().String())
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("failed to close UDP connection: %w", err)
		}
	}
	return nil
}

// Ensure UDPSender satisfies the interface at compile time.
var _ transport.Transport = (*UDPSender)(nil)
