package rtmpproxy

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"

	"github.com/torresjeff/rtmpproxy/config"
	"github.com/torresjeff/rtmpproxy/rand"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stage is the position of a Session in the proxy pipeline.
type Stage int32

const (
	StageResolving Stage = iota
	StageHandshaking
	StageIntercepting
	StageRelaying
	StageClosed
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StageHandshaking:
		return "handshaking"
	case StageIntercepting:
		return "intercepting"
	case StageRelaying:
		return "relaying"
	case StageClosed:
		return "closed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session proxies one accepted client connection to the real server:
// resolve, dial, shadow the handshake, rewrite the publishing commands, then relay raw bytes.
type Session struct {
	sessionID  string
	logger     *zap.Logger
	config     *config.Config
	resolver   AddrResolver
	handshaker Handshaker

	client net.Conn
	stage  atomic.Int32

	mu     sync.Mutex
	server net.Conn
	relay  *relay
	closed bool
}

func NewSession(logger *zap.Logger, client net.Conn, cfg *config.Config, resolver AddrResolver) *Session {
	sessionID := rand.GenerateSessionID()
	logger = logger.With(
		zap.String("session", sessionID),
		zap.Stringer("remote", client.RemoteAddr()),
		zap.Stringer("local", client.LocalAddr()),
	)
	return &Session{
		sessionID:  sessionID,
		logger:     logger,
		config:     cfg,
		resolver:   resolver,
		handshaker: &ShadowHandshaker{Logger: logger},
		client:     client,
	}
}

func (s *Session) ID() string {
	return s.sessionID
}

func (s *Session) Stage() Stage {
	return Stage(s.stage.Load())
}

func (s *Session) setStage(stage Stage) {
	s.stage.Store(int32(stage))
	s.logger.Debug("session stage", zap.Stringer("stage", stage))
}

// Run drives the connection through every stage and returns once both connections are closed.
// A nil error means the relay ended with one side closing normally.
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.setStage(StageFailed)
		} else {
			s.setStage(StageClosed)
		}
		s.Close()
		s.waitRelay()
	}()

	s.setStage(StageResolving)
	addr, err := s.resolver.Resolve(ctx, s.config.ServerAddr)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: s.config.DialTimeout}
	server, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return ioError("dial server", err)
	}
	if err := s.setServer(server); err != nil {
		return err
	}
	s.logger.Info("connected to server", zap.Stringer("server", server.RemoteAddr()))

	s.setStage(StageHandshaking)
	clientReader, err := NewReader(bufio.NewReaderSize(s.client, config.BuffioSize))
	if err != nil {
		return err
	}
	// Reads from the server stay unbuffered: the downstream relay takes the socket over right after.
	clientSide := readWriter{Reader: clientReader, Writer: s.client}
	if err := s.handshaker.Handshake(clientSide, server); err != nil {
		return ioError("handshake", err)
	}

	// The server answers connect before the client sends publish, so server to client
	// traffic is relayed as soon as the handshake is over.
	r := s.startRelay(server)
	r.startDownstream()

	s.setStage(StageIntercepting)
	serverWriter, err := NewWriter(bufio.NewWriterSize(server, config.BuffioSize))
	if err != nil {
		return err
	}
	hijacker := NewHijacker(s.logger, s.config.AppName, s.config.PlayURL, s.config.StreamName)
	stream := NewMessageStream(s.logger.Sugar(), clientReader, serverWriter, hijacker)
	if err := stream.Intercept(); err != nil {
		return err
	}

	pending := clientReader.Buffered()
	if _, err := clientReader.FlushBuffered(server); err != nil {
		return ioError("flush client bytes", err)
	}
	s.logger.Info("interception complete",
		zap.Uint64("clientBytes", clientReader.ReadBytes()),
		zap.Uint64("serverBytes", serverWriter.WrittenBytes()),
		zap.Int("pendingBytes", pending),
		zap.Uint32("chunkSize", stream.ChunkSize()))

	s.setStage(StageRelaying)
	r.startUpstream()
	if err := r.wait(); err != nil {
		return ioError("relay", err)
	}
	s.logger.Info("relay finished",
		zap.Uint64("upstreamBytes", r.upstream.Load()),
		zap.Uint64("downstreamBytes", r.downstream.Load()))
	return nil
}

func (s *Session) setServer(server net.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		server.Close()
		return ioError("dial server", ErrSessionClosed)
	}
	s.server = server
	return nil
}

func (s *Session) startRelay(server net.Conn) *relay {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relay = newRelay(s.logger, s.client, server)
	return s.relay
}

func (s *Session) waitRelay() {
	s.mu.Lock()
	r := s.relay
	s.mu.Unlock()
	if r != nil {
		r.wait()
	}
}

// Close closes the client connection and, once dialed, the server connection.
// It is safe to call from another goroutine while Run is in progress.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.relay != nil {
		return s.relay.Close()
	}
	err := s.client.Close()
	if s.server != nil {
		err = multierr.Append(err, s.server.Close())
	}
	return err
}

type readWriter struct {
	io.Reader
	io.Writer
}
