package codec

import (
	"encoding/binary"
	"io"
)

// lengthEscape is the one-byte length-prefix value that means "the real
// length follows as a full-width u64".
const lengthEscape = 0xFF

// WriteFrame writes one record's tag, length prefix and body to w. Length
// encoding: bodies shorter than 255 bytes get a single length byte;
// longer bodies get lengthEscape followed by a u64 length in order.
func WriteFrame(w io.Writer, order binary.ByteOrder, tag RecordType, body []byte) error {
	if _, err := w.Write([]byte{byte(tag)}); err != nil {
		return NewIOError(err)
	}
	if len(body) < lengthEscape {
		if _, err := w.Write([]byte{byte(len(body))}); err != nil {
			return NewIOError(err)
		}
	} else {
		var tmp [9]byte
		tmp[0] = lengthEscape
		order.PutUint64(tmp[1:], uint64(len(body)))
		if _, err := w.Write(tmp[:]); err != nil {
			return NewIOError(err)
		}
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return NewIOError(err)
		}
	}
	return nil
}

// ReadFrame reads one tag and length-delimited body from r. A clean EOF
// on the tag byte is returned unwrapped (io.EOF) to let the caller treat
// it as the normal end of stream; any other read failure, including EOF
// in the middle of a frame, is wrapped as a fatal *IOError.
func ReadFrame(r io.Reader, order binary.ByteOrder) (tag RecordType, body []byte, err error) {
	var tagByte [1]byte
	if _, err := io.ReadFull(r, tagByte[:]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, NewIOError(err)
	}
	tag = RecordType(tagByte[0])

	var lenByte [1]byte
	if _, err := io.ReadFull(r, lenByte[:]); err != nil {
		return 0, nil, NewIOError(err)
	}

	var length uint64
	if lenByte[0] == lengthEscape {
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return 0, nil, NewIOError(err)
		}
		length = order.Uint64(ext[:])
	} else {
		length = uint64(lenByte[0])
	}

	body = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, NewIOError(err)
		}
	}
	return tag, body, nil
}
