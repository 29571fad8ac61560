package rtmpproxy

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrMultipleChunkStreams = errors.New("unsupported multi-chunkstream at a time")
	ErrNoPreviousChunk      = errors.New("received chunk type that depends on a previous chunk, but no previous chunk was found")
	ErrInvalidChunkSize     = errors.New("invalid set chunk size message")
	ErrUnexpectedValueKind  = errors.New("unexpected AMF0 value kind")
	ErrMissingArgument      = errors.New("command is missing a required argument")
	ErrSessionClosed        = errors.New("session closed")
	ErrResolverClosed       = errors.New("resolver closed")
)

// Kind classifies a per-connection failure.
type Kind uint8

const (
	KindIO Kind = iota
	KindProtocol
	KindResolution
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindResolution:
		return "resolution"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is the error type returned by a failing Session. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

func ioError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

func protocolError(op string, err error) error {
	return &Error{Kind: KindProtocol, Op: op, Err: err}
}

func resolutionError(op string, err error) error {
	return &Error{Kind: KindResolution, Op: op, Err: err}
}

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsProtocolError reports whether err was caused by a malformed chunk, chunk stream or AMF0 payload.
func IsProtocolError(err error) bool { return isKind(err, KindProtocol) }

// IsIOError reports whether err was caused by a failed or short socket read or write.
func IsIOError(err error) bool { return isKind(err, KindIO) }

// IsResolutionError reports whether err was caused by a failed server address lookup.
func IsResolutionError(err error) bool { return isKind(err, KindResolution) }

var ErrNilWriter = errors.New("expected *bufio.Writer to be non-nil, but got a nil value")
var ErrNilReader = errors.New("expected *bufio.Reader to be non-nil, but got a nil value")
