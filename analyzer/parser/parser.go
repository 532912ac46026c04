// Package parser implements the Analyzer-side streaming pull-parser:
// RecordParser reads the datagrind trace file front-to-back, recovering
// from a malformed individual record without aborting the whole walk
// (§4.6).
package parser

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/bmerry/datagrind/codec"
	"github.com/pkg/errors"
)

// Handler receives every well-formed record the parser decodes. Returning
// a *codec.ContentError counts and skips that record, as for a decode
// failure; any other non-nil error aborts Walk immediately with that error.
type Handler interface {
	// Header is called exactly once, before any other callback, with the
	// validated stream header.
	Header(h codec.Header) error
	LegacyAccess(tag codec.RecordType, body codec.LegacyAccessBody) error
	TrackRange(body codec.TrackRangeBody) error
	UntrackRange(body codec.UntrackRangeBody) error
	StartEvent(body codec.EventBody) error
	EndEvent(body codec.EventBody) error
	TextAVMA(body codec.TextAVMABody) error
	BBDef(body codec.BBDefBody) error
	Context(body codec.ContextBody) error
	BBRun(body codec.BBRunBody) error
	MallocBlock(body codec.MallocBlockBody) error
	FreeBlock(body codec.FreeBlockBody) error
}

// Stats accumulates non-fatal events observed during a Walk, for the
// summary an Analyzer CLI reports at the end of a run.
type Stats struct {
	ContentErrors int
	UnknownTags   int
}

// RecordParser drives a Handler over a trace stream. WordSize and byte
// order are fixed once the HEADER record is read; Walk rejects a stream
// whose first record is not HEADER.
type RecordParser struct {
	r       io.Reader
	handler Handler
	hostWordSize uint8

	order    binary.ByteOrder
	wordSize uint8
	Stats    Stats
}

// New returns a parser reading r and dispatching to handler. hostWordSize
// is the Analyzer's own HWord width (4 or 8); a stream whose header
// advertises a different width is a fatal content error, since no
// cross-word-size decoding is supported (§1 Non-goals).
func New(r io.Reader, hostWordSize uint8, handler Handler) *RecordParser {
	return &RecordParser{r: r, handler: handler, hostWordSize: hostWordSize}
}

// recoverContentError turns a panic raised by a BodyReader field accessor into a
// *codec.ContentError, mirroring tracer/util.PanicHandler's contract: a
// single record's decode failure never propagates past record boundary.
func recoverContentError(errp *error) {
	if obj := recover(); obj != nil {
		if ce, ok := obj.(*codec.ContentError); ok {
			*errp = ce
			return
		}
		if e, ok := obj.(error); ok {
			*errp = codec.NewContentError(e.Error())
			return
		}
		*errp = codec.NewContentError(fmt.Sprint(obj))
	}
}

// Walk reads records until EOF or a fatal error. Content errors are
// logged, counted in Stats, and skipped; I/O errors and Handler errors
// abort immediately and are returned.
func (p *RecordParser) Walk() error {
	// The header record is framed with a tentative byte order; its own
	// body is order-independent (single bytes) so little-endian is fine
	// for this one read.
	tag, body, err := codec.ReadFrame(p.r, binary.LittleEndian)
	if err == io.EOF {
		return errors.New("datagrind: empty stream, expected HEADER record")
	}
	if err != nil {
		return err
	}
	if tag != codec.RecordHeader {
		return codec.NewContentError("first record is not HEADER")
	}

	var header codec.Header
	if err := header.Unmarshal(codec.NewBodyReader(body, binary.LittleEndian, 1)); err != nil {
		return err
	}
	if header.WordSize != p.hostWordSize {
		return codec.NewContentError("trace word size does not match analyzer word size")
	}
	p.order = header.ByteOrder()
	p.wordSize = header.WordSize
	if err := p.handler.Header(header); err != nil {
		return err
	}

	for {
		tag, body, err := codec.ReadFrame(p.r, p.order)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := p.dispatch(tag, body); err != nil {
			var ioErr *codec.IOError
			if errors.As(err, &ioErr) {
				return err
			}
			var ce *codec.ContentError
			if errors.As(err, &ce) {
				p.Stats.ContentErrors++
				log.Printf("datagrind: content error, skipping record: %v", err)
				continue
			}
			// A Handler-returned error (not an (IO|Content)Error) aborts
			// the walk; this is the caller's own business logic failing.
			return err
		}
	}
}

func (p *RecordParser) dispatch(tag codec.RecordType, body []byte) (err error) {
	defer recoverContentError(&err)
	r := codec.NewBodyReader(body, p.order, p.wordSize)

	switch tag {
	case codec.RecordRead, codec.RecordWrite, codec.RecordInstr:
		var b codec.LegacyAccessBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.LegacyAccess(tag, b)

	case codec.RecordTrackRange:
		var b codec.TrackRangeBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.TrackRange(b)

	case codec.RecordUntrackRange:
		var b codec.UntrackRangeBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.UntrackRange(b)

	case codec.RecordStartEvent:
		var b codec.EventBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.StartEvent(b)

	case codec.RecordEndEvent:
		var b codec.EventBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.EndEvent(b)

	case codec.RecordTextAVMA:
		var b codec.TextAVMABody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.TextAVMA(b)

	case codec.RecordBBDef:
		var b codec.BBDefBody
		if err := b.Unmarshal(r); err != nil {
			return err
		}
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.BBDef(b)

	case codec.RecordContext:
		var b codec.ContextBody
		if err := b.Unmarshal(r); err != nil {
			return err
		}
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.Context(b)

	case codec.RecordBBRun:
		var b codec.BBRunBody
		if err := b.Unmarshal(r, p.wordSize); err != nil {
			return err
		}
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.BBRun(b)

	case codec.RecordMallocBlock:
		var b codec.MallocBlockBody
		if err := b.Unmarshal(r); err != nil {
			return err
		}
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.MallocBlock(b)

	case codec.RecordFreeBlock:
		var b codec.FreeBlockBody
		b.Unmarshal(r)
		if ferr := r.Finish(); ferr != nil {
			return ferr
		}
		return p.handler.FreeBlock(b)

	default:
		p.Stats.UnknownTags++
		log.Printf("datagrind: unknown record tag %d (%d bytes), skipping", tag, len(body))
		return nil
	}
}
