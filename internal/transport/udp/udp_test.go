// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"pluck/internal/transport"
)

func TestPacketLayout(t *testing.T) {
	b, err := AppendPacket(nil, 0x01020304, 5, []float32{1})
	if err != nil {
		t.Fatalf("AppendPacket() error = %v", err)
	}
	want := []byte{
		0x01, 0x02, 0x03, 0x04, // seq
		0, 0, 0, 0, 0, 0, 0, 5, // timestamp
		0, 1, // count
		0x3f, 0x80, 0x00, 0x00, // 1.0f
	}
	if string(b) != string(want) {
		t.Errorf("AppendPacket() = % x, want % x", b, want)
	}
}

func TestDecodePacket(t *testing.T) {
	values := []float32{0.5, -0.25, 3}
	b, _ := AppendPacket(nil, 9, -1, values)

	p, err := DecodePacket(b)
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if p.Seq != 9 || p.Timestamp != -1 || len(p.Values) != 3 {
		t.Fatalf("DecodePacket() = %+v", p)
	}
	for i := range values {
		if p.Values[i] != values[i] {
			t.Errorf("Values[%d] = %v, want %v", i, p.Values[i], values[i])
		}
	}

	tests := []struct {
		name string
		b    []byte
		want error
	}{
		{"short header", b[:HeaderSize-1], ErrShortPacket},
		{"truncated body", b[:len(b)-1], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePacket(tt.b); !errors.Is(err, tt.want) {
				t.Errorf("DecodePacket() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAppendPacketTooManyValues(t *testing.T) {
	if _, err := AppendPacket(nil, 0, 0, make([]float32, 1<<16)); !errors.Is(err, ErrTooManyValues) {
		t.Errorf("AppendPacket() error = %v, want %v", err, ErrTooManyValues)
	}
}

func TestUDPSender(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}

	frame := &transport.Frame{Seq: 3, Time: 99, Spectrum: []float32{0.1, 0.2}}
	if err := sender.Send(frame); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	buf := make([]byte, 1024)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	p, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if p.Seq != 3 || p.Timestamp != 99 || len(p.Values) != 2 || p.Values[1] != 0.2 {
		t.Errorf("received %+v", p)
	}

	if err := sender.Send(42); err == nil {
		t.Error("Send(int) error = nil, want unsupported payload")
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close error = %v, want %v", err, ErrSenderClosed)
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("NewUDPSender() error = nil for a bad address")
	}
}
