package wasm_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/bf2wasm/wasm"
)

func TestLEB128Unsigned(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0x80, 0x80, 0x01}, 16384},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := wasm.EncodeLEB128u(tt.value); !bytes.Equal(got, tt.encoded) {
				t.Errorf("encode %d: got %v, want %v", tt.value, got, tt.encoded)
			}

			got, err := wasm.ReadLEB128u(bytes.NewReader(tt.encoded))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.value {
				t.Errorf("decode: got %d, want %d", got, tt.value)
			}
		})
	}
}

func TestLEB128Signed(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x3f}, 63},
		{[]byte{0xc0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0xbf, 0x7f}, -65},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0xc0, 0xbb, 0x78}, -123456},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 2147483647},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -2147483648},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := wasm.EncodeLEB128s(tt.value); !bytes.Equal(got, tt.encoded) {
				t.Errorf("encode %d: got %v, want %v", tt.value, got, tt.encoded)
			}

			got, err := wasm.ReadLEB128s(bytes.NewReader(tt.encoded))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.value {
				t.Errorf("decode: got %d, want %d", got, tt.value)
			}
		})
	}
}

func TestLEB128Overflow(t *testing.T) {
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}

	if _, err := wasm.ReadLEB128u(bytes.NewReader(data)); !errors.Is(err, wasm.ErrOverflow) {
		t.Errorf("unsigned: got %v, want ErrOverflow", err)
	}
	if _, err := wasm.ReadLEB128s(bytes.NewReader(data)); !errors.Is(err, wasm.ErrOverflow) {
		t.Errorf("signed: got %v, want ErrOverflow", err)
	}
}
