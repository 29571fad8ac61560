package rtmpproxy

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CommandHijacker rewrites AMF0 command payloads. done reports that the command just
// processed was the last one to intercept.
type CommandHijacker interface {
	HijackCommand(payload []byte) (out []byte, done bool, err error)
}

// MessageStream reassembles the chunks a client sends into messages, lets a CommandHijacker
// rewrite AMF0 commands and re-chunks every message towards the server.
//
// Only one chunk stream may be mid-message at a time: a chunk for another chunk stream id
// before the current message is complete fails with ErrMultipleChunkStreams.
type MessageStream struct {
	logger   *zap.SugaredLogger
	reader   ReadByteReaderCounter
	writer   WriteFlusher
	hijacker CommandHijacker

	// lastChunkHeader is the fully resolved header of the previous chunk; types 1-3 inherit from it.
	lastChunkHeader ChunkHeader
	hasPrevious     bool
	// chunkSize is the maximum chunk payload, both for reading the client and writing the server.
	// The server learns it from the forwarded Set Chunk Size message, so the two always agree.
	chunkSize uint32
	payload   []byte
	bytesRead uint32
}

func NewMessageStream(logger *zap.SugaredLogger, reader ReadByteReaderCounter, writer WriteFlusher, hijacker CommandHijacker) *MessageStream {
	return &MessageStream{
		logger:    logger,
		reader:    reader,
		writer:    writer,
		hijacker:  hijacker,
		chunkSize: DefaultChunkSize,
	}
}

// ChunkSize returns the chunk size currently in effect for this connection.
func (ms *MessageStream) ChunkSize() uint32 {
	return ms.chunkSize
}

// Intercept forwards messages until the hijacker reports that interception is complete.
func (ms *MessageStream) Intercept() error {
	for {
		done, err := ms.NextMessage()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// NextMessage reads chunks until one message is complete, handles it and forwards it.
// It returns true once the hijacker has seen its final command.
func (ms *MessageStream) NextMessage() (bool, error) {
	for {
		msg, err := ms.ReadChunk()
		if err != nil {
			return false, err
		}
		if msg != nil {
			return ms.handleMessage(msg)
		}
	}
}

// ReadChunk reads a single chunk. It returns the message once its last chunk has been read,
// and nil while the message is still incomplete. The returned payload is only valid until
// the next call.
func (ms *MessageStream) ReadChunk() (*Message, error) {
	header, err := ReadChunkHeader(ms.reader)
	if err != nil {
		return nil, ioError("read chunk header", err)
	}
	ms.logger.Debugf("received new chunk header, %+v", header)

	if ms.bytesRead != 0 && header.ChunkStreamID != ms.lastChunkHeader.ChunkStreamID {
		return nil, protocolError("read chunk", errors.Wrapf(ErrMultipleChunkStreams,
			"chunk stream %d interleaved with %d", header.ChunkStreamID, ms.lastChunkHeader.ChunkStreamID))
	}
	if header.Format != ChunkType0 && !ms.hasPrevious {
		return nil, protocolError("read chunk", ErrNoPreviousChunk)
	}

	prev := ms.lastChunkHeader
	switch header.Format {
	case ChunkType1:
		header.MessageStreamID = prev.MessageStreamID
	case ChunkType2:
		header.MessageLength = prev.MessageLength
		header.MessageTypeID = prev.MessageTypeID
		header.MessageStreamID = prev.MessageStreamID
	case ChunkType3:
		header.Timestamp = prev.Timestamp
		header.MessageLength = prev.MessageLength
		header.MessageTypeID = prev.MessageTypeID
		header.MessageStreamID = prev.MessageStreamID
	}
	ms.lastChunkHeader = header
	ms.hasPrevious = true

	if ms.bytesRead == 0 {
		if uint32(cap(ms.payload)) >= header.MessageLength {
			ms.payload = ms.payload[:header.MessageLength]
		} else {
			ms.payload = make([]byte, header.MessageLength)
		}
	} else if uint32(len(ms.payload)) != header.MessageLength {
		return nil, protocolError("read chunk", errors.Errorf("message length changed from %d to %d mid-message",
			len(ms.payload), header.MessageLength))
	}

	n := header.MessageLength - ms.bytesRead
	if n > ms.chunkSize {
		n = ms.chunkSize
	}
	if _, err := io.ReadFull(ms.reader, ms.payload[ms.bytesRead:ms.bytesRead+n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, ioError("read chunk payload", err)
	}
	ms.bytesRead += n
	if ms.bytesRead < header.MessageLength {
		return nil, nil
	}

	ms.bytesRead = 0
	return &Message{Header: header, Payload: ms.payload}, nil
}

// handleMessage applies Set Chunk Size, hijacks AMF0 commands and forwards the result.
// A Set Chunk Size message is itself still chunked with the size in effect before it.
func (ms *MessageStream) handleMessage(msg *Message) (bool, error) {
	payload := msg.Payload
	done := false
	nextChunkSize := ms.chunkSize

	switch msg.Header.MessageTypeID {
	case SetChunkSize:
		size, err := parseSetChunkSize(payload)
		if err != nil {
			return false, protocolError("set chunk size", err)
		}
		ms.logger.Debugf("set chunk size to %d", size)
		nextChunkSize = size
	case CommandMessageAMF0:
		out, hijackDone, err := ms.hijacker.HijackCommand(payload)
		if err != nil {
			return false, protocolError("hijack command", err)
		}
		payload = out
		done = hijackDone
	}

	if err := writeMessage(ms.writer, msg.Header, payload, ms.chunkSize); err != nil {
		return false, ioError("write message", err)
	}
	ms.chunkSize = nextChunkSize
	return done, nil
}

// parseSetChunkSize decodes the 4 byte big-endian body of a Set Chunk Size message.
// The most significant bit is reserved and ignored.
func parseSetChunkSize(body []byte) (uint32, error) {
	if len(body) != 4 {
		return 0, errors.Wrapf(ErrInvalidChunkSize, "payload of %d bytes", len(body))
	}
	size := binary.BigEndian.Uint32(body) & 0x7FFFFFFF
	if size == 0 {
		return 0, errors.Wrap(ErrInvalidChunkSize, "chunk size 0")
	}
	return size, nil
}
