package rtmpproxy

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/torresjeff/rtmpproxy/config"
	"go.uber.org/zap"
)

const acceptRetryDelay = time.Second

// Server accepts RTMP publishers and proxies each one to the configured server.
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	// Resolver is used for every session. If nil, one with Config.ResolverWorkers workers is
	// created for the lifetime of the server.
	Resolver AddrResolver
	// Sessions tracks live sessions. If nil, an InMemoryContext is used.
	Sessions SessionStore
}

// ListenAndServe listens on Config.Listen and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Config == nil {
		return errors.New("server: nil config")
	}
	listener, err := net.Listen("tcp", s.Config.Listen)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.Config.Listen)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then closes the listener and
// every live session and waits for them to finish. It returns nil on cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Sessions == nil {
		s.Sessions = NewInMemoryContext()
	}
	if s.Resolver == nil {
		resolver := NewResolver(s.Config.ResolverWorkers, s.Logger)
		defer resolver.Close()
		s.Resolver = resolver
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.Logger.Info("listening", zap.Stringer("addr", listener.Addr()), zap.String("server", s.Config.ServerAddr))

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.Logger.Info("shutting down", zap.Int("sessions", s.Sessions.NumberOfSessions()))
				if err := s.Sessions.CloseAll(); err != nil {
					s.Logger.Debug("error closing sessions", zap.Error(err))
				}
				return nil
			}
			s.Logger.Error("error accepting incoming connection", zap.Error(err))
			select {
			case <-time.After(acceptRetryDelay):
			case <-ctx.Done():
			}
			continue
		}

		sess := NewSession(s.Logger, conn, s.Config, s.Resolver)
		s.Sessions.RegisterSession(sess)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.Sessions.DestroySession(sess.ID())
			s.serveSession(ctx, sess, conn)
		}()
	}
}

func (s *Server) serveSession(ctx context.Context, sess *Session, conn net.Conn) {
	logger := s.Logger.With(zap.String("session", sess.ID()))
	logger.Info("accepted incoming connection", zap.Stringer("remote", conn.RemoteAddr()))
	if err := sess.Run(ctx); err != nil {
		logger.Error("session ended with an error", zap.Error(err), zap.Stringer("stage", sess.Stage()))
		return
	}
	logger.Info("session ended")
}
