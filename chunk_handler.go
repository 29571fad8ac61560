package rtmpproxy

import (
	"encoding/binary"
	"io"

	"github.com/torresjeff/rtmpproxy/internal/binary24"
)

// ReadChunkHeader reads one basic header and the message header that follows it.
// Fields a chunk type does not carry are left zero; see MessageStream for inheritance.
// A read that ends before the header is complete returns io.ErrUnexpectedEOF;
// io.EOF is only returned when r ends exactly at a chunk boundary.
func ReadChunkHeader(r io.Reader) (ChunkHeader, error) {
	//  0 1 2 3 4 5 6 7
	// +-+-+-+-+-+-+-+-+
	// |fmt|   cs id   |
	// +-+-+-+-+-+-+-+-+
	basic, err := readBasicHeaderByte(r)
	if err != nil {
		return ChunkHeader{}, err
	}
	var buf [chunkType0MessageHeaderLength]byte
	ch := ChunkHeader{
		Format:        ChunkType(basic >> 6),
		ChunkStreamID: uint32(basic & 0x3F),
	}

	switch ch.ChunkStreamID {
	case 0:
		// 2 byte form: ids 64-319
		if err := readFull(r, buf[:1]); err != nil {
			return ch, err
		}
		ch.ChunkStreamID = uint32(buf[0]) + 64
	case 1:
		// 3 byte form: 16-bit big-endian id + 64
		if err := readFull(r, buf[:2]); err != nil {
			return ch, err
		}
		ch.ChunkStreamID = uint32(binary.BigEndian.Uint16(buf[:2])) + 64
	}

	n := ch.Format.messageHeaderLength()
	if n == 0 {
		return ch, nil
	}
	mh := buf[:n]
	if err := readFull(r, mh); err != nil {
		return ch, err
	}
	// Types 0, 1 and 2 all start with the 3 byte timestamp (or timestamp delta).
	ch.Timestamp = binary24.BigEndian.Uint24(mh[0:3])
	if ch.Format == ChunkType0 || ch.Format == ChunkType1 {
		ch.MessageLength = binary24.BigEndian.Uint24(mh[3:6])
		ch.MessageTypeID = MessageType(mh[6])
	}
	if ch.Format == ChunkType0 {
		// NOTE: message stream ID is stored in little endian format
		ch.MessageStreamID = binary.LittleEndian.Uint32(mh[7:11])
	}

	if ch.Timestamp == binary24.Max {
		var ext [extendedTimestampLength]byte
		if err := readFull(r, ext[:]); err != nil {
			return ch, err
		}
		ch.Timestamp = binary.BigEndian.Uint32(ext[:])
	}
	return ch, nil
}

// readBasicHeaderByte reads the first byte of a chunk, one byte at a time when r supports it.
func readBasicHeaderByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// readFull is used once part of a header has been read, so io.EOF means a truncated header.
func readFull(r io.Reader, p []byte) error {
	_, err := io.ReadFull(r, p)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
