package cmd

import (
	"os"

	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/analyzer/parser"
	"github.com/bmerry/datagrind/analyzer/symres"
	"github.com/bmerry/datagrind/codec"
)

// hostWordSize is this build's own HWord width. The parser rejects any
// trace whose header advertises a different width (§1 Non-goals: no
// cross-word-size decoding).
const hostWordSize = 8

// loadHandler forwards every record to an access.Index, additionally
// feeding TEXT_AVMA records to a symres.Resolver so `datagrind query` can
// label the accesses it reports without a second pass over the file.
type loadHandler struct {
	*access.Index
	resolver *symres.Resolver
}

func (h loadHandler) TextAVMA(b codec.TextAVMABody) error {
	h.resolver.ObjectLoaded(b.Filename, b.TextAVMA, b.Filename)
	return h.Index.TextAVMA(b)
}

// loadTrace opens path, parses it end-to-end and returns a populated
// access.Index plus a symres.Resolver seeded from the trace's TEXT_AVMA
// records. The caller owns reporting parser.Stats.ContentErrors /
// UnknownTags as warnings.
func loadTrace(path string, opts access.FilterOptions) (*access.Index, *symres.Resolver, *parser.RecordParser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, NewUsageError("cannot open trace file: " + err.Error())
	}
	defer f.Close()

	idx := access.New(opts)
	resolver := symres.New()
	p := parser.New(f, hostWordSize, loadHandler{Index: idx, resolver: resolver})
	if err := p.Walk(); err != nil {
		return nil, nil, nil, err
	}
	idx.FinishLoad()
	return idx, resolver, p, nil
}
