// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Frame sequence number   |
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Spectrum of the window  |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the size of the fixed packet header in bytes.
const HeaderSize = 4 + 8 + 2

var (
	ErrShortPacket   = errors.New("udp: packet shorter than header")
	ErrTruncated     = errors.New("udp: packet truncated")
	ErrTooManyValues = errors.New("udp: too many values for one packet")
)

// Packet is a decoded UDP frame.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Values    []float32
}

// AppendPacket encodes a packet onto dst and returns the extended slice.
func AppendPacket(dst []byte, seq uint32, timestamp int64, values []float32) ([]byte, error) {
	if len(values) > math.MaxUint16 {
		return dst, fmt.Errorf("%w: %d", ErrTooManyValues, len(values))
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(values)))
	for _, v := range values {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst, nil
}

// DecodePacket parses b. Trailing bytes beyond the declared count are
// ignored.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	body := b[HeaderSize:]
	if len(body) < count*4 {
		return Packet{}, fmt.Errorf("%w: want %d values, have %d bytes", ErrTruncated, count, len(body))
	}
	p.Values = make([]float32, count)
	for i := range p.Values {
		p.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	return p, nil
}
