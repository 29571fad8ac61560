package binary24

import (
	"bytes"
	"testing"
)

func TestBigEndian(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		bytes []byte
	}{
		{"zero", 0, []byte{0x00, 0x00, 0x00}},
		{"small", 0x0102, []byte{0x00, 0x01, 0x02}},
		{"max", Max, []byte{0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BigEndian.Uint24(tt.bytes); got != tt.value {
				t.Errorf("expected %#x, but got %#x", tt.value, got)
			}
			if got := BigEndian.AppendUint24([]byte{0xAA}, tt.value); !bytes.Equal(got[1:], tt.bytes) || got[0] != 0xAA {
				t.Errorf("unexpected append result %x", got)
			}
		})
	}
}

func TestAppendUint24DropsHighByte(t *testing.T) {
	b := BigEndian.AppendUint24(nil, 0x12345678)
	if !bytes.Equal(b, []byte{0x34, 0x56, 0x78}) {
		t.Errorf("expected 345678, but got %x", b)
	}
}
