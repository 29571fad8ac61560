package rtmpproxy

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/torresjeff/rtmpproxy/internal/binary24"
)

var ErrInvalidChunkStreamID = errors.New("chunk stream id cannot be encoded")
var ErrInvalidChunkType = errors.New("unknown chunk type")

// AppendHeader appends the wire form of h to b: basic header, the message header for h.Format
// and the extended timestamp when Timestamp does not fit in 24 bits. It is the exact inverse of
// ReadChunkHeader.
func (h *ChunkHeader) AppendHeader(b []byte) ([]byte, error) {
	if h.Format > ChunkType3 {
		return nil, errors.Wrapf(ErrInvalidChunkType, "%d", h.Format)
	}
	fmtBits := byte(h.Format) << 6
	switch {
	case h.ChunkStreamID < 2 || h.ChunkStreamID > maxChunkStreamID:
		// 0 and 1 are the markers for the longer forms
		return nil, errors.Wrapf(ErrInvalidChunkStreamID, "%d", h.ChunkStreamID)
	case h.ChunkStreamID <= maxOneByteChunkStreamID:
		b = append(b, fmtBits|byte(h.ChunkStreamID))
	case h.ChunkStreamID <= maxTwoByteChunkStreamID:
		b = append(b, fmtBits, byte(h.ChunkStreamID-64))
	default:
		b = append(b, fmtBits|1)
		b = binary.BigEndian.AppendUint16(b, uint16(h.ChunkStreamID-64))
	}

	if h.Format == ChunkType3 {
		return b, nil
	}

	extended := h.Timestamp >= binary24.Max
	ts := h.Timestamp
	if extended {
		ts = binary24.Max
	}
	b = binary24.BigEndian.AppendUint24(b, ts)
	if h.Format == ChunkType0 || h.Format == ChunkType1 {
		b = binary24.BigEndian.AppendUint24(b, h.MessageLength)
		b = append(b, byte(h.MessageTypeID))
	}
	if h.Format == ChunkType0 {
		b = binary.LittleEndian.AppendUint32(b, h.MessageStreamID)
	}
	if extended {
		b = binary.BigEndian.AppendUint32(b, h.Timestamp)
	}
	return b, nil
}

// writeMessage splits payload into chunks of at most chunkSize bytes: a type 0 chunk carrying
// header's stream id, timestamp, type and the payload length, followed by type 3 continuation
// chunks. An empty payload still produces one type 0 chunk.
// header.Timestamp is written as is into the type 0 chunk. For a message that arrived with a
// type 1 or 2 header that value is the timestamp delta, which is then sent as an absolute
// timestamp; commands exchanged before publish carry a zero timestamp.
func writeMessage(w WriteFlusher, header ChunkHeader, payload []byte, chunkSize uint32) error {
	if chunkSize == 0 {
		return ErrInvalidChunkSize
	}
	if len(payload) > binary24.Max {
		return errors.Errorf("message of %d bytes does not fit a 24-bit length", len(payload))
	}
	header.Format = ChunkType0
	header.MessageLength = uint32(len(payload))

	first, err := header.AppendHeader(make([]byte, 0, 18))
	if err != nil {
		return err
	}
	header.Format = ChunkType3
	continuation, err := header.AppendHeader(make([]byte, 0, 3))
	if err != nil {
		return err
	}

	written := 0
	for {
		if written == 0 {
			_, err = w.Write(first)
		} else {
			_, err = w.Write(continuation)
		}
		if err != nil {
			return err
		}
		n := len(payload) - written
		if uint64(n) > uint64(chunkSize) {
			n = int(chunkSize)
		}
		if _, err = w.Write(payload[written : written+n]); err != nil {
			return err
		}
		written += n
		if written >= len(payload) {
			break
		}
	}
	return w.Flush()
}
