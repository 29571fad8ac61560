package rtmpproxy

import (
	"testing"

	"github.com/torresjeff/rtmpproxy/config"
	"go.uber.org/zap/zaptest"
)

func TestInMemoryContext(t *testing.T) {
	ctx := NewInMemoryContext()
	cfg := &config.Config{ServerAddr: "127.0.0.1:1935"}

	clientA, proxyA := tcpPair(t)
	clientB, proxyB := tcpPair(t)
	a := NewSession(zaptest.NewLogger(t), proxyA, cfg, &resolverMock{})
	b := NewSession(zaptest.NewLogger(t), proxyB, cfg, &resolverMock{})
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct session ids, but both are %s", a.ID())
	}

	ctx.RegisterSession(a)
	ctx.RegisterSession(b)
	if n := ctx.NumberOfSessions(); n != 2 {
		t.Errorf("expected 2 sessions, but got %d", n)
	}

	ctx.DestroySession(a.ID())
	if n := ctx.NumberOfSessions(); n != 1 {
		t.Errorf("expected 1 session, but got %d", n)
	}
	// destroying an unknown session is a no-op
	ctx.DestroySession("unknown")

	if err := ctx.CloseAll(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := clientB.Read(make([]byte, 1)); err == nil {
		t.Error("expected the registered session's client connection to be closed")
	}
	if _, err := clientA.Write([]byte{1}); err != nil {
		t.Errorf("expected the destroyed session to be left open, but got %v", err)
	}
}
