package codec

import (
	"bytes"
	"encoding/binary"
)

// BodyWriter accumulates one record's body before it is handed to a
// Frame for length-prefixing. Field order is set by each record type's
// Marshal method in records.go.
type BodyWriter struct {
	buf   bytes.Buffer
	order binary.ByteOrder
	word  uint8
}

func NewBodyWriter(order binary.ByteOrder, wordSize uint8) *BodyWriter {
	return &BodyWriter{order: order, word: wordSize}
}

func (w *BodyWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *BodyWriter) PutByte(b uint8) {
	w.buf.WriteByte(b)
}

func (w *BodyWriter) PutRaw(b []byte) {
	w.buf.Write(b)
}

// PutWord writes the low WordSize bytes of val in the writer's byte order.
func (w *BodyWriter) PutWord(val HWord) {
	var tmp [8]byte
	w.order.PutUint64(tmp[:], uint64(val))
	if w.order == binary.BigEndian {
		w.buf.Write(tmp[8-int(w.word):])
	} else {
		w.buf.Write(tmp[:w.word])
	}
}

// PutUint64 writes a full-width, word-size-independent 64-bit integer.
// No record body in this package uses it: counts such as n_accesses are
// HWords written with PutWord, and WriteFrame writes the extended length
// prefix itself.
func (w *BodyWriter) PutUint64(val uint64) {
	var tmp [8]byte
	w.order.PutUint64(tmp[:], val)
	w.buf.Write(tmp[:])
}

// PutString writes a NUL-terminated string. Truncation to a per-record
// length cap is the caller's responsibility (Recorder side only).
func (w *BodyWriter) PutString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// BodyReader reads fields out of one record's already-length-delimited
// body. Every read method panics on underrun; callers at the RecordParser
// boundary recover via recoverContentError and turn the panic into a
// *ContentError, matching tracer/util.PanicHandler's contract.
type BodyReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	word  uint8
}

func NewBodyReader(body []byte, order binary.ByteOrder, wordSize uint8) *BodyReader {
	return &BodyReader{buf: body, order: order, word: wordSize}
}

func (r *BodyReader) need(n int) {
	if r.pos+n > len(r.buf) {
		panic(NewContentError("record body truncated"))
	}
}

func (r *BodyReader) Byte() uint8 {
	r.need(1)
	b := r.buf[r.pos]
	r.pos++
	return b
}

func (r *BodyReader) Raw(n int) []byte {
	r.need(n)
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *BodyReader) Word() HWord {
	r.need(int(r.word))
	var tmp [8]byte
	if r.order == binary.BigEndian {
		copy(tmp[8-int(r.word):], r.buf[r.pos:r.pos+int(r.word)])
	} else {
		copy(tmp[:r.word], r.buf[r.pos:r.pos+int(r.word)])
	}
	r.pos += int(r.word)
	return HWord(r.order.Uint64(tmp[:]))
}

func (r *BodyReader) Uint64() uint64 {
	r.need(8)
	val := r.order.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return val
}

// String reads a NUL-terminated string. A missing terminator is a
// ContentError.
func (r *BodyReader) String() string {
	idx := bytes.IndexByte(r.buf[r.pos:], 0)
	if idx < 0 {
		panic(NewContentError("unterminated string in record body"))
	}
	s := string(r.buf[r.pos : r.pos+idx])
	r.pos += idx + 1
	return s
}

// Remaining returns the number of unread bytes in the body.
func (r *BodyReader) Remaining() int {
	return len(r.buf) - r.pos
}

// Finish fails if bytes remain in the body, per §4.6's parser contract.
func (r *BodyReader) Finish() error {
	if r.Remaining() != 0 {
		return NewContentError("trailing bytes in record body")
	}
	return nil
}
