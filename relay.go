package rtmpproxy

import (
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/torresjeff/rtmpproxy/config"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var copyBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, config.BuffioSize)
		return &b
	},
}

// relay copies opaque bytes between the client and the server once interception is over.
// The two directions are started independently; whichever finishes first closes both
// connections so the other one cannot stay blocked on a half-open socket.
type relay struct {
	logger *zap.Logger
	client net.Conn
	server net.Conn

	upstream   atomic.Uint64
	downstream atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	errMu     sync.Mutex
	err       error
}

func newRelay(logger *zap.Logger, client, server net.Conn) *relay {
	return &relay{
		logger: logger,
		client: client,
		server: server,
	}
}

// startDownstream relays server to client.
func (r *relay) startDownstream() {
	r.start("downstream", r.client, r.server, &r.downstream)
}

// startUpstream relays client to server.
func (r *relay) startUpstream() {
	r.start("upstream", r.server, r.client, &r.upstream)
}

func (r *relay) start(direction string, dst, src net.Conn, counter *atomic.Uint64) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		n, err := copyConn(dst, src, counter)
		if err != nil && !isClosedConnError(err) {
			r.logger.Debug("relay direction failed", zap.String("direction", direction), zap.Int64("bytes", n), zap.Error(err))
			r.errMu.Lock()
			if r.err == nil {
				r.err = errors.Wrap(err, direction)
			}
			r.errMu.Unlock()
		} else {
			r.logger.Debug("relay direction finished", zap.String("direction", direction), zap.Int64("bytes", n))
		}
		r.Close()
	}()
}

// Close closes both connections. Only the first call has any effect.
func (r *relay) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = multierr.Combine(r.client.Close(), r.server.Close())
	})
	return r.closeErr
}

// wait blocks until every started direction has returned, and reports the first copy error.
func (r *relay) wait() error {
	r.wg.Wait()
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// copyConn moves bytes from src to dst until src reaches end of stream or either side fails.
// The zero-copy path is tried first and the buffered copy is used when it cannot be set up.
func copyConn(dst, src net.Conn, counter *atomic.Uint64) (int64, error) {
	if n, handled, err := zeroCopy(dst, src, counter); handled {
		return n, err
	}
	return bufferedCopy(dst, src, counter)
}

func bufferedCopy(dst io.Writer, src io.Reader, counter *atomic.Uint64) (int64, error) {
	bp := copyBufferPool.Get().(*[]byte)
	defer copyBufferPool.Put(bp)
	// Hide ReaderFrom/WriterTo so the pooled buffer is the one in use.
	return io.CopyBuffer(countingWriter{w: dst, n: counter}, struct{ io.Reader }{src}, *bp)
}

type countingWriter struct {
	w io.Writer
	n *atomic.Uint64
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(uint64(n))
	return n, err
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
