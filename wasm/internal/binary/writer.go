package binary

import (
	"encoding/binary"
)

// Writer accumulates a WASM binary encoding.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	w.buf = AppendU32(w.buf, v)
}

// WriteName writes a UTF-8 encoded name (length-prefixed).
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteU32LE writes a little-endian uint32 (fixed 4 bytes).
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Sized writes body prefixed with its u32 length.
func (w *Writer) Sized(body *Writer) {
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
}

// Section writes a section or subsection: id byte, size, body.
func (w *Writer) Section(id byte, body *Writer) {
	w.Byte(id)
	w.Sized(body)
}
