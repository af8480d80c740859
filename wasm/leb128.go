package wasm

import (
	"io"

	"github.com/wippyai/bf2wasm/wasm/internal/binary"
)

// ErrOverflow is returned when a LEB128 value exceeds 32 bits.
var ErrOverflow = binary.ErrOverflow

// ReadLEB128u reads an unsigned 32-bit LEB128 value.
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	return binary.DecodeU32(r)
}

// ReadLEB128s reads a signed 32-bit LEB128 value.
func ReadLEB128s(r io.ByteReader) (int32, error) {
	return binary.DecodeS32(r)
}

// AppendLEB128u appends the unsigned LEB128 encoding of v to dst.
func AppendLEB128u(dst []byte, v uint32) []byte {
	return binary.AppendU32(dst, v)
}

// AppendLEB128s appends the signed LEB128 encoding of v to dst.
func AppendLEB128s(dst []byte, v int32) []byte {
	return binary.AppendS32(dst, v)
}

func EncodeLEB128u(v uint32) []byte { return AppendLEB128u(nil, v) }
func EncodeLEB128s(v int32) []byte  { return AppendLEB128s(nil, v) }
