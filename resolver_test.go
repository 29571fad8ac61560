package rtmpproxy

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(1, zaptest.NewLogger(t))
	defer r.Close()

	addr, err := r.Resolve(context.Background(), "127.0.0.1:1935")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.String() != "127.0.0.1:1935" {
		t.Errorf("expected 127.0.0.1:1935, but got %v", addr)
	}

	_, err = r.Resolve(context.Background(), "no-port")
	if !IsResolutionError(err) {
		t.Errorf("expected a resolution error, but got %v", err)
	}
}

func TestLookupTCPAddr(t *testing.T) {
	addr, err := lookupTCPAddr(context.Background(), "127.0.0.1:1935")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.String() != "127.0.0.1:1935" {
		t.Errorf("expected 127.0.0.1:1935, but got %v", addr)
	}

	tests := []struct {
		name     string
		hostport string
	}{
		{"missingPort", "127.0.0.1"},
		{"unknownService", "127.0.0.1:no-such-service-rtmpproxy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if addr, err := lookupTCPAddr(context.Background(), tt.hostport); err == nil {
				t.Errorf("expected an error, but got %v", addr)
			}
		})
	}

	t.Run("contextCancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if addr, err := lookupTCPAddr(ctx, "rtmpproxy.invalid:1935"); err == nil {
			t.Errorf("expected a cancelled lookup to fail, but got %v", addr)
		}
	})
}

func TestResolver_Concurrent(t *testing.T) {
	var calls atomic.Int32
	lookup := func(ctx context.Context, hostport string) (*net.TCPAddr, error) {
		calls.Inc()
		return &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1935}, nil
	}
	r := NewResolverWithLookup(2, zaptest.NewLogger(t), lookup)
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, err := r.Resolve(context.Background(), "real:1935")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if addr.Port != 1935 {
				t.Errorf("expected port 1935, but got %d", addr.Port)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 20 {
		t.Errorf("expected 20 lookups, but got %d", calls.Load())
	}
}

func TestResolver_Errors(t *testing.T) {
	errLookup := errors.New("no such host")
	block := make(chan struct{})
	lookup := func(ctx context.Context, hostport string) (*net.TCPAddr, error) {
		if hostport == "slow:1935" {
			<-block
		}
		return nil, errLookup
	}
	r := NewResolverWithLookup(1, zaptest.NewLogger(t), lookup)

	t.Run("lookupFails", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "real:1935")
		if !IsResolutionError(err) || !errors.Is(err, errLookup) {
			t.Errorf("expected a resolution error wrapping %v, but got %v", errLookup, err)
		}
	})

	t.Run("contextCancelled", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := r.Resolve(ctx, "slow:1935")
		if !IsResolutionError(err) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected a resolution error wrapping %v, but got %v", context.DeadlineExceeded, err)
		}
		close(block)
	})

	t.Run("closed", func(t *testing.T) {
		r.Close()
		_, err := r.Resolve(context.Background(), "real:1935")
		if !IsResolutionError(err) || !errors.Is(err, ErrResolverClosed) {
			t.Errorf("expected a resolution error wrapping %v, but got %v", ErrResolverClosed, err)
		}
	})
}
