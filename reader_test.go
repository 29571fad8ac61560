package rtmpproxy

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewReader(t *testing.T) {
	if _, err := NewReader(nil); err != ErrNilReader {
		t.Errorf("expected %v, but got %v", ErrNilReader, err)
	}
	if _, err := NewWriter(nil); err != ErrNilWriter {
		t.Errorf("expected %v, but got %v", ErrNilWriter, err)
	}
}

func TestReader_Read(t *testing.T) {
	// a tiny bufio buffer forces Read to span several underlying reads
	r, _ := NewReader(bufio.NewReaderSize(strings.NewReader("abcdefghijklmnopqrstuvwxyz"), 16))
	b := make([]byte, 20)
	if n, err := r.Read(b); err != nil || n != 20 {
		t.Fatalf("expected 20 bytes, but got %d (err %v)", n, err)
	}
	c, err := r.ReadByte()
	if err != nil || c != 'u' {
		t.Errorf("expected u, but got %q (err %v)", c, err)
	}
	if _, err := r.Read(make([]byte, 10)); err != io.ErrUnexpectedEOF {
		t.Errorf("expected %v, but got %v", io.ErrUnexpectedEOF, err)
	}
	if r.ReadBytes() != 26 {
		t.Errorf("expected 26 bytes read, but got %d", r.ReadBytes())
	}
	if _, err := r.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected %v, but got %v", io.EOF, err)
	}
}

func TestReader_FlushBuffered(t *testing.T) {
	r, _ := NewReader(bufio.NewReader(strings.NewReader("headerpending")))
	if _, err := r.Read(make([]byte, 6)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Buffered() != 7 {
		t.Fatalf("expected 7 buffered bytes, but got %d", r.Buffered())
	}

	var out bytes.Buffer
	n, err := r.FlushBuffered(&out)
	if err != nil || n != 7 {
		t.Fatalf("expected 7 bytes flushed, but got %d (err %v)", n, err)
	}
	if out.String() != "pending" {
		t.Errorf("expected pending, but got %q", out.String())
	}
	if r.Buffered() != 0 {
		t.Errorf("expected nothing left buffered, but got %d", r.Buffered())
	}
	if n, err := r.FlushBuffered(&out); n != 0 || err != nil {
		t.Errorf("expected an empty flush, but got %d (err %v)", n, err)
	}
}

func TestWriter(t *testing.T) {
	w, buf := newTestWriter()
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written before Flush, but got %d bytes", buf.Len())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "abc" || w.WrittenBytes() != 3 {
		t.Errorf("expected abc and 3 written bytes, but got %q and %d", buf.String(), w.WrittenBytes())
	}
}
