package rtmpproxy

import (
	"bytes"
	"crypto/rand"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
)

type handshakerMock struct {
	err error
}

var errDuringHandshake = errors.New("error during handshake")

func (h *handshakerMock) Handshake(client io.ReadWriter, server io.ReadWriter) error {
	return h.err
}

func pipeWithDeadline(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	deadline := time.Now().Add(5 * time.Second)
	a.SetDeadline(deadline)
	b.SetDeadline(deadline)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func randomHandshake(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b[0] = RtmpVersion3
	return b
}

func TestShadowHandshaker_Handshake(t *testing.T) {
	client, proxyClient := pipeWithDeadline(t)
	proxyServer, server := pipeWithDeadline(t)

	c0c1, s0s1 := randomHandshake(t, 1537), randomHandshake(t, 1537)
	c2, s2 := randomHandshake(t, 1536), randomHandshake(t, 1536)

	done := make(chan error, 1)
	go func() {
		h := &ShadowHandshaker{Logger: zaptest.NewLogger(t)}
		done <- h.Handshake(proxyClient, proxyServer)
	}()

	clientErr := make(chan error, 1)
	go func() {
		if _, err := client.Write(c0c1); err != nil {
			clientErr <- err
			return
		}
		got := make([]byte, 1537)
		if _, err := io.ReadFull(client, got); err != nil {
			clientErr <- err
			return
		}
		if !bytes.Equal(got, s0s1) {
			clientErr <- errors.New("client received a different s0s1")
			return
		}
		if _, err := client.Write(c2); err != nil {
			clientErr <- err
			return
		}
		got = got[:1536]
		if _, err := io.ReadFull(client, got); err != nil {
			clientErr <- err
			return
		}
		if !bytes.Equal(got, s2) {
			clientErr <- errors.New("client received a different s2")
			return
		}
		clientErr <- nil
	}()

	got := make([]byte, 1537)
	if _, err := io.ReadFull(server, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, c0c1) {
		t.Errorf("expected server to receive c0c1 unchanged")
	}
	if _, err := server.Write(s0s1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got = got[:1536]
	if _, err := io.ReadFull(server, got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, c2) {
		t.Errorf("expected server to receive c2 unchanged")
	}
	if _, err := server.Write(s2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := <-clientErr; err != nil {
		t.Errorf("client: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("expected handshake to succeed, but got %v", err)
	}
}

func TestShadowHandshaker_ShortRead(t *testing.T) {
	tests := []struct {
		name     string
		clientN  int
		serverN  int
		wantStep string
	}{
		{"clientClosesDuringC0C1", 100, 0, "c0c1"},
		{"serverClosesDuringS0S1", 1537, 10, "s0s1"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client, proxyClient := pipeWithDeadline(t)
			proxyServer, server := pipeWithDeadline(t)

			go func() {
				client.Write(make([]byte, tt.clientN))
				if tt.serverN == 0 {
					client.Close()
				}
			}()
			go func() {
				if tt.serverN == 0 {
					io.Copy(io.Discard, server)
					return
				}
				io.ReadFull(server, make([]byte, 1537))
				server.Write(make([]byte, tt.serverN))
				server.Close()
			}()
			go io.Copy(io.Discard, client)

			err := (&ShadowHandshaker{}).Handshake(proxyClient, proxyServer)
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("expected %v, but got %v", io.ErrUnexpectedEOF, err)
			}
			if err != nil && !strings.HasPrefix(err.Error(), tt.wantStep) {
				t.Errorf("expected the error to name step %s, but got %v", tt.wantStep, err)
			}
		})
	}
}
