package parser_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bmerry/datagrind/analyzer/parser"
	"github.com/bmerry/datagrind/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	header  codec.Header
	bbdefs  []codec.BBDefBody
	ctxs    []codec.ContextBody
	bbruns  []codec.BBRunBody
	mallocs []codec.MallocBlockBody
	frees   []codec.FreeBlockBody
}

func (h *recordingHandler) Header(hd codec.Header) error                                { h.header = hd; return nil }
func (h *recordingHandler) LegacyAccess(codec.RecordType, codec.LegacyAccessBody) error  { return nil }
func (h *recordingHandler) TrackRange(codec.TrackRangeBody) error                        { return nil }
func (h *recordingHandler) UntrackRange(codec.UntrackRangeBody) error                     { return nil }
func (h *recordingHandler) StartEvent(codec.EventBody) error                             { return nil }
func (h *recordingHandler) EndEvent(codec.EventBody) error                               { return nil }
func (h *recordingHandler) TextAVMA(codec.TextAVMABody) error                            { return nil }
func (h *recordingHandler) BBDef(b codec.BBDefBody) error                                 { h.bbdefs = append(h.bbdefs, b); return nil }
func (h *recordingHandler) Context(b codec.ContextBody) error                             { h.ctxs = append(h.ctxs, b); return nil }
func (h *recordingHandler) BBRun(b codec.BBRunBody) error                                 { h.bbruns = append(h.bbruns, b); return nil }
func (h *recordingHandler) MallocBlock(b codec.MallocBlockBody) error                     { h.mallocs = append(h.mallocs, b); return nil }
func (h *recordingHandler) FreeBlock(b codec.FreeBlockBody) error                         { h.frees = append(h.frees, b); return nil }

func writeScenario(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	order := binary.LittleEndian

	hw := codec.NewBodyWriter(order, 8)
	codec.Header{Version: codec.Version, BigEndian: false, WordSize: 8}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))

	bw := codec.NewBodyWriter(order, 8)
	codec.BBDefBody{
		Instrs:   []codec.BBDefInstrRec{{Addr: 0x1000, Size: 4}},
		Accesses: []codec.BBDefAccessRec{{Dir: codec.Read, Size: 4, ISeq: 0}},
	}.Marshal(bw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordBBDef, bw.Bytes()))

	cw := codec.NewBodyWriter(order, 8)
	codec.ContextBody{BBDefIndex: 0, Stack: []codec.HWord{0x1000}}.Marshal(cw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordContext, cw.Bytes()))

	rw := codec.NewBodyWriter(order, 8)
	codec.BBRunBody{ContextIndex: 0, NInstrs: 1, Addrs: []codec.HWord{0x2000}}.Marshal(rw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordBBRun, rw.Bytes()))

	return &buf
}

func TestWalkDispatchesScenario(t *testing.T) {
	buf := writeScenario(t)
	h := &recordingHandler{}
	p := parser.New(buf, 8, h)
	require.NoError(t, p.Walk())

	assert.Equal(t, uint8(8), h.header.WordSize)
	require.Len(t, h.bbdefs, 1)
	require.Len(t, h.ctxs, 1)
	require.Len(t, h.bbruns, 1)
	assert.Equal(t, codec.HWord(0x2000), h.bbruns[0].Addrs[0])
	assert.Equal(t, 0, p.Stats.ContentErrors)
	assert.Equal(t, 0, p.Stats.UnknownTags)
}

func TestWalkRecoversFromContentErrorAndContinues(t *testing.T) {
	var buf bytes.Buffer
	order := binary.LittleEndian

	hw := codec.NewBodyWriter(order, 8)
	codec.Header{Version: codec.Version, WordSize: 8}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))

	// malformed BBDEF: n_instrs = 0
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordBBDef, []byte{0x00, 0, 0, 0, 0, 0, 0, 0, 0}))

	// valid FREE_BLOCK afterward must still be dispatched
	fw := codec.NewBodyWriter(order, 8)
	codec.FreeBlockBody{Addr: 0x9000}.Marshal(fw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordFreeBlock, fw.Bytes()))

	h := &recordingHandler{}
	p := parser.New(&buf, 8, h)
	require.NoError(t, p.Walk())

	assert.Equal(t, 1, p.Stats.ContentErrors)
	require.Len(t, h.frees, 1)
	assert.Equal(t, codec.HWord(0x9000), h.frees[0].Addr)
}

func TestWalkSkipsUnknownTag(t *testing.T) {
	var buf bytes.Buffer
	order := binary.LittleEndian

	hw := codec.NewBodyWriter(order, 8)
	codec.Header{Version: codec.Version, WordSize: 8}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordType(200), []byte{1, 2, 3}))

	fw := codec.NewBodyWriter(order, 8)
	codec.FreeBlockBody{Addr: 0x1}.Marshal(fw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordFreeBlock, fw.Bytes()))

	h := &recordingHandler{}
	p := parser.New(&buf, 8, h)
	require.NoError(t, p.Walk())
	assert.Equal(t, 1, p.Stats.UnknownTags)
	require.Len(t, h.frees, 1)
}

func TestWalkRejectsWordSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	order := binary.LittleEndian
	hw := codec.NewBodyWriter(order, 4)
	codec.Header{Version: codec.Version, WordSize: 4}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))

	h := &recordingHandler{}
	p := parser.New(&buf, 8, h)
	err := p.Walk()
	require.Error(t, err)
	var ce *codec.ContentError
	assert.ErrorAs(t, err, &ce)
}
