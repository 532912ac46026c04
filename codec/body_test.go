package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyWriterReader_RoundTrip(t *testing.T) {
	w := NewBodyWriter(binary.LittleEndian, 8)
	w.PutByte(0x42)
	w.PutWord(0x1122334455667788)
	w.PutString("hello")
	w.PutUint64(0xdeadbeefcafebabe)

	r := NewBodyReader(w.Bytes(), binary.LittleEndian, 8)
	assert.Equal(t, uint8(0x42), r.Byte())
	assert.Equal(t, HWord(0x1122334455667788), r.Word())
	assert.Equal(t, "hello", r.String())
	assert.Equal(t, uint64(0xdeadbeefcafebabe), r.Uint64())
	assert.NoError(t, r.Finish())
}

func TestBodyWriterReader_WordSize4Truncates(t *testing.T) {
	w := NewBodyWriter(binary.LittleEndian, 4)
	w.PutWord(0x1122334455667788)

	r := NewBodyReader(w.Bytes(), binary.LittleEndian, 4)
	assert.Equal(t, HWord(0x55667788), r.Word())
}

func TestBodyReader_UnterminatedStringIsContentError(t *testing.T) {
	r := NewBodyReader([]byte{'a', 'b', 'c'}, binary.LittleEndian, 8)
	assert.Panics(t, func() { _ = r.String() })
}

func TestBodyReader_FinishFailsOnTrailingBytes(t *testing.T) {
	r := NewBodyReader([]byte{1, 2, 3}, binary.LittleEndian, 8)
	r.Byte()
	err := r.Finish()
	assert.Error(t, err)
	var ce *ContentError
	assert.ErrorAs(t, err, &ce)
}
