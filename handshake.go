package rtmpproxy

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const RtmpVersion3 = 3

const (
	handshakeMessageSize = 1536
	// c0/s0 carry the version byte in front of c1/s1.
	handshakeFirstRoundSize  = 1 + handshakeMessageSize
	handshakeSecondRoundSize = handshakeMessageSize
)

// ShadowHandshaker mirrors the handshake byte for byte: c0c1 to the server, s0s1 back,
// then c2 to the server and s2 back. Contents are never validated.
type ShadowHandshaker struct {
	Logger *zap.Logger
}

func (h *ShadowHandshaker) Handshake(client io.ReadWriter, server io.ReadWriter) error {
	var buf [handshakeFirstRoundSize]byte

	c0c1 := buf[:handshakeFirstRoundSize]
	if err := copySized(server, client, c0c1); err != nil {
		return errors.Wrap(err, "c0c1")
	}
	if c0c1[0] != RtmpVersion3 && h.Logger != nil {
		h.Logger.Debug("client requested non-standard rtmp version", zap.Uint8("version", c0c1[0]))
	}
	if err := copySized(client, server, buf[:handshakeFirstRoundSize]); err != nil {
		return errors.Wrap(err, "s0s1")
	}
	if err := copySized(server, client, buf[:handshakeSecondRoundSize]); err != nil {
		return errors.Wrap(err, "c2")
	}
	if err := copySized(client, server, buf[:handshakeSecondRoundSize]); err != nil {
		return errors.Wrap(err, "s2")
	}
	return nil
}

// copySized reads exactly len(buf) bytes from src and writes them all to dst.
func copySized(dst io.Writer, src io.Reader, buf []byte) error {
	if _, err := io.ReadFull(src, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if _, err := dst.Write(buf); err != nil {
		return err
	}
	if f, ok := dst.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
