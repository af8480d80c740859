package binary

import (
	"errors"
	"io"
)

// ErrOverflow is returned when a LEB128 value exceeds the maximum size.
var ErrOverflow = errors.New("leb128: overflow")

// AppendU32 appends the unsigned LEB128 encoding of v.
func AppendU32(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendS32 appends the signed LEB128 encoding of v.
func AppendS32(dst []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// DecodeU32 reads an unsigned LEB128 value of at most 5 bytes.
func DecodeU32(r io.ByteReader) (uint32, error) {
	var result uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, ErrOverflow
}

// DecodeS32 reads a signed LEB128 value of at most 5 bytes.
func DecodeS32(r io.ByteReader) (int32, error) {
	var result int32
	for shift := uint(0); shift < 35; {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 32 && b&0x40 != 0 {
				result |= ^int32(0) << shift
			}
			return result, nil
		}
	}
	return 0, ErrOverflow
}
