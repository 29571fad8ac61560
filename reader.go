package rtmpproxy

import (
	"bufio"
	"io"
)

type ByteCounter interface {
	ReadBytes() uint64
}

// ReadByteReaderCounter is the interface that groups Reader, ByteReader, and ByteCounter interfaces.
type ReadByteReaderCounter interface {
	io.Reader
	io.ByteReader
	ByteCounter
}

// Reader counts the bytes consumed from a buffered socket reader.
type Reader struct {
	reader *bufio.Reader
	n      uint64
}

func NewReader(reader *bufio.Reader) (*Reader, error) {
	if reader == nil {
		return nil, ErrNilReader
	}
	return &Reader{reader: reader}, nil
}

// Read reads exactly len(p) bytes from the underlying bufio.Reader into p.
// The error is EOF only if no bytes were read. If an EOF happens after reading
// some but not all the bytes, Read returns ErrUnexpectedEOF.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = io.ReadFull(r.reader, p)
	r.n += uint64(n)
	return n, err
}

// ReadByte reads and returns a single byte from the underlying bufio.Reader.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.reader.ReadByte()
	if err == nil {
		r.n++
	}
	return b, err
}

// ReadBytes returns the number of bytes read so far.
func (r *Reader) ReadBytes() uint64 {
	return r.n
}

// Buffered returns the number of bytes read from the socket but not yet consumed.
func (r *Reader) Buffered() int {
	return r.reader.Buffered()
}

// FlushBuffered writes the bytes already pulled off the socket but not yet consumed to w,
// without issuing another read on the socket. It is used before handing the socket to a raw relay.
func (r *Reader) FlushBuffered(w io.Writer) (int, error) {
	n := r.reader.Buffered()
	if n == 0 {
		return 0, nil
	}
	b, err := r.reader.Peek(n)
	if err != nil {
		return 0, err
	}
	written, err := w.Write(b)
	if _, derr := r.reader.Discard(written); err == nil {
		err = derr
	}
	r.n += uint64(written)
	return written, err
}
