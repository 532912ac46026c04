package codec

import (
	"encoding/binary"
)

// Magic is the fixed signature that must open every trace file's HEADER
// record body.
const Magic = "DATAGRIND1\x00"

// Version is the only header version this codec understands.
const Version = 1

// Header is the decoded body of the first record in a trace file.
type Header struct {
	Version   uint8
	BigEndian bool
	WordSize  uint8 // bytes per HWord, typically 4 or 8
}

// ByteOrder returns the binary.ByteOrder a Header's BigEndian flag selects.
// The RecordParser decodes every multi-byte field in this order, whatever
// the host's own endianness; a trace whose order differs from the host's
// is neither an error nor reported by a warning.
func (h Header) ByteOrder() binary.ByteOrder {
	if h.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Marshal appends the HEADER record body (magic, version, endian,
// wordsize) to a BodyWriter.
func (h Header) Marshal(w *BodyWriter) {
	w.PutRaw([]byte(Magic))
	w.PutByte(h.Version)
	if h.BigEndian {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
	w.PutByte(h.WordSize)
}

// Unmarshal decodes a HEADER record body. It is a ContentError (not an
// IOError) for the magic or word size to be invalid, since a header is
// just another record as far as framing is concerned.
func (h *Header) Unmarshal(r *BodyReader) error {
	magic := r.Raw(len(Magic))
	if string(magic) != Magic {
		return NewContentError("bad magic in HEADER record")
	}
	h.Version = r.Byte()
	endian := r.Byte()
	h.BigEndian = endian != 0
	h.WordSize = r.Byte()
	if h.WordSize != 4 && h.WordSize != 8 {
		return NewContentError("unsupported word size in HEADER record")
	}
	return nil
}
