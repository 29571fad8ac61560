package rtmpproxy

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AddrResolver turns the configured host:port of the real server into a dialable address.
type AddrResolver interface {
	Resolve(ctx context.Context, hostport string) (*net.TCPAddr, error)
}

// LookupFunc performs one blocking address lookup.
type LookupFunc func(ctx context.Context, hostport string) (*net.TCPAddr, error)

// lookupTCPAddr resolves hostport with the default resolver, preferring an IPv4 address.
// The lookup is abandoned when ctx is done.
func lookupTCPAddr(ctx context.Context, hostport string) (*net.TCPAddr, error) {
	host, service, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := net.DefaultResolver.LookupPort(ctx, "tcp", service)
	if err != nil {
		return nil, err
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.Errorf("no addresses for %s", host)
	}
	addr := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			addr = a
			break
		}
	}
	return &net.TCPAddr{IP: addr.IP, Port: port, Zone: addr.Zone}, nil
}

type resolveResult struct {
	addr *net.TCPAddr
	err  error
}

type resolveJob struct {
	ctx      context.Context
	hostport string
	// reply has a buffer of 1 so a worker never blocks on a caller that gave up.
	reply chan resolveResult
}

// Resolver runs lookups on a fixed pool of workers, so sessions never resolve on their own goroutine.
// It is safe for concurrent use.
type Resolver struct {
	logger *zap.Logger
	lookup LookupFunc
	jobs   chan resolveJob
	quit   chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ AddrResolver = (*Resolver)(nil)

func NewResolver(workers int, logger *zap.Logger) *Resolver {
	return NewResolverWithLookup(workers, logger, lookupTCPAddr)
}

// NewResolverWithLookup is like NewResolver but uses lookup instead of the system resolver.
func NewResolverWithLookup(workers int, logger *zap.Logger, lookup LookupFunc) *Resolver {
	if workers < 1 {
		workers = 1
	}
	r := &Resolver{
		logger: logger,
		lookup: lookup,
		jobs:   make(chan resolveJob, workers*16),
		quit:   make(chan struct{}),
	}
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.work(i)
	}
	return r
}

func (r *Resolver) work(id int) {
	defer r.wg.Done()
	for {
		select {
		case <-r.quit:
			return
		case job := <-r.jobs:
			if err := job.ctx.Err(); err != nil {
				job.reply <- resolveResult{err: err}
				continue
			}
			addr, err := r.lookup(job.ctx, job.hostport)
			if err == nil {
				r.logger.Debug("resolved server address",
					zap.Int("worker", id), zap.String("hostport", job.hostport), zap.Stringer("addr", addr))
			}
			job.reply <- resolveResult{addr: addr, err: err}
		}
	}
}

// Resolve queues a lookup of hostport and waits for its result. Failures are resolution errors.
func (r *Resolver) Resolve(ctx context.Context, hostport string) (*net.TCPAddr, error) {
	job := resolveJob{ctx: ctx, hostport: hostport, reply: make(chan resolveResult, 1)}
	select {
	case r.jobs <- job:
	case <-r.quit:
		return nil, resolutionError("resolve", ErrResolverClosed)
	case <-ctx.Done():
		return nil, resolutionError("resolve", ctx.Err())
	}

	select {
	case res := <-job.reply:
		if res.err != nil {
			return nil, resolutionError("resolve", errors.Wrapf(res.err, "lookup %s", hostport))
		}
		return res.addr, nil
	case <-r.quit:
		return nil, resolutionError("resolve", ErrResolverClosed)
	case <-ctx.Done():
		return nil, resolutionError("resolve", ctx.Err())
	}
}

// Close stops the workers and waits for them to return. Pending and future calls to Resolve fail.
func (r *Resolver) Close() error {
	r.closeOnce.Do(func() {
		close(r.quit)
		r.wg.Wait()
	})
	return nil
}
