package rtmpproxy

import (
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// tcpPair returns both ends of a loopback TCP connection.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()
	a, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := <-accepted
	if b == nil {
		t.Fatal("accept failed")
	}
	deadline := time.Now().Add(5 * time.Second)
	a.SetDeadline(deadline)
	b.SetDeadline(deadline)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func readString(t *testing.T, r io.Reader, n int) string {
	t.Helper()
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(b)
}

func TestRelay(t *testing.T) {
	tests := []struct {
		name string
		pair func(t *testing.T) (net.Conn, net.Conn)
	}{
		// loopback TCP takes the splice path on linux
		{"tcp", tcpPair},
		// net.Pipe conns always use the buffered copy
		{"pipe", pipeWithDeadline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, proxyClient := tt.pair(t)
			proxyServer, server := tt.pair(t)

			r := newRelay(zaptest.NewLogger(t), proxyClient, proxyServer)
			r.startDownstream()
			r.startUpstream()

			go client.Write([]byte("hello"))
			if got := readString(t, server, 5); got != "hello" {
				t.Errorf("expected server to read hello, but got %q", got)
			}
			go server.Write([]byte("world!"))
			if got := readString(t, client, 6); got != "world!" {
				t.Errorf("expected client to read world!, but got %q", got)
			}

			// closing one end must close the other as well
			client.Close()
			if _, err := server.Read(make([]byte, 1)); err == nil {
				t.Error("expected the server side to be closed")
			}
			if err := r.wait(); err != nil {
				t.Errorf("expected relay to end cleanly, but got %v", err)
			}
			if r.upstream.Load() != 5 {
				t.Errorf("expected 5 upstream bytes, but got %d", r.upstream.Load())
			}
			if r.downstream.Load() != 6 {
				t.Errorf("expected 6 downstream bytes, but got %d", r.downstream.Load())
			}
		})
	}
}

func TestRelay_CloseUnblocksDirections(t *testing.T) {
	_, proxyClient := tcpPair(t)
	proxyServer, _ := tcpPair(t)

	r := newRelay(zaptest.NewLogger(t), proxyClient, proxyServer)
	r.startDownstream()
	r.startUpstream()

	done := make(chan error, 1)
	go func() { done <- r.wait() }()
	r.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected no error after Close, but got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected both directions to return after Close")
	}
}
