package rtmpproxy

type ChunkType uint8

const (
	ChunkType0 ChunkType = iota
	ChunkType1
	ChunkType2
	ChunkType3
)

const (
	chunkType0MessageHeaderLength = 11
	chunkType1MessageHeaderLength = 7
	chunkType2MessageHeaderLength = 3
	extendedTimestampLength       = 4

	// Chunk stream ids below 64 fit in the basic header byte; the next 256 use one extra byte.
	maxOneByteChunkStreamID = 63
	maxTwoByteChunkStreamID = 64 + 255
	maxChunkStreamID        = 64 + 0xFFFF
)

const DefaultChunkSize = 128

// ChunkHeader contains the information used in order to interpret a chunk correctly.
// For chunk types 1-3 the fields absent from the wire are zero until the reassembler
// fills them in from the previous header.
type ChunkHeader struct {
	Format        ChunkType
	ChunkStreamID uint32
	// Timestamp holds the 24-bit value, or the 32-bit extended timestamp when the 24-bit field was 0xFFFFFF.
	Timestamp       uint32
	MessageLength   uint32
	MessageTypeID   MessageType
	MessageStreamID uint32
}

// messageHeaderLength is the number of message header bytes that follow the basic header.
func (t ChunkType) messageHeaderLength() int {
	switch t {
	case ChunkType0:
		return chunkType0MessageHeaderLength
	case ChunkType1:
		return chunkType1MessageHeaderLength
	case ChunkType2:
		return chunkType2MessageHeaderLength
	default:
		return 0
	}
}
