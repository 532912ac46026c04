package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmerry/datagrind/codec"
	"github.com/stretchr/testify/require"
)

// writeMinimalTrace writes a HEADER-only trace (no accesses) to path,
// enough to exercise loadTrace and the CLI's empty-result paths.
func writeMinimalTrace(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	order := binary.LittleEndian
	hw := codec.NewBodyWriter(order, 8)
	codec.Header{Version: codec.Version, BigEndian: false, WordSize: 8}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func writeSingleAccessTrace(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	order := binary.LittleEndian

	hw := codec.NewBodyWriter(order, 8)
	codec.Header{Version: codec.Version, BigEndian: false, WordSize: 8}.Marshal(hw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordHeader, hw.Bytes()))

	bw := codec.NewBodyWriter(order, 8)
	codec.BBDefBody{
		Instrs:   []codec.BBDefInstrRec{{Addr: 0x1000, Size: 4}},
		Accesses: []codec.BBDefAccessRec{{Dir: codec.Write, Size: 4, ISeq: 0}},
	}.Marshal(bw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordBBDef, bw.Bytes()))

	cw := codec.NewBodyWriter(order, 8)
	codec.ContextBody{BBDefIndex: 0, Stack: []codec.HWord{0x1000}}.Marshal(cw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordContext, cw.Bytes()))

	rw := codec.NewBodyWriter(order, 8)
	codec.BBRunBody{ContextIndex: 0, NInstrs: 1, Addrs: []codec.HWord{0x2000}}.Marshal(rw)
	require.NoError(t, codec.WriteFrame(&buf, order, codec.RecordBBRun, rw.Bytes()))

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func tracePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
