package rtmpproxy

import "io"

// Handshaker runs the RTMP handshake between an accepted client and the real server.
type Handshaker interface {
	Handshake(client io.ReadWriter, server io.ReadWriter) error
}
