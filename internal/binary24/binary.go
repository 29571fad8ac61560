// Package binary24 reads and writes the 3-byte integers used by RTMP chunk message headers.
package binary24

// Max is the largest value a 24-bit field can hold. RTMP reserves it as the
// extended timestamp marker.
const Max = 0xFFFFFF

var BigEndian bigEndian

type bigEndian struct{}

// Uint24 decodes b[0:3] as a big-endian unsigned integer.
func (bigEndian) Uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// AppendUint24 appends the big-endian 3-byte form of v to b. Higher bits are dropped.
func (bigEndian) AppendUint24(b []byte, v uint32) []byte {
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}
