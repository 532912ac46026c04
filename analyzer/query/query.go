// Package query implements the Analyzer's NearestAccessQuery: given a
// point in (address, instruction-sequence) space, find the kept access
// minimising a ratio-weighted Euclidean distance, without scanning every
// access (§4.11).
package query

import (
	"math"
	"sort"

	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/codec"
)

// Index is the subset of access.Index that NearestAccessQuery needs. The
// real type satisfies it; tests may supply a fake.
type Index interface {
	NumBBRuns() int
	BBRunIseqStart(i int) uint64
	BBRunNumAddrs(i int) int
	Access(i, j int) (access.Access, bool)
}

// Nearest returns the kept access minimising
// hypot((a.Addr-addr)*ratio, a.ISeq-iseq), or false if no kept access
// exists anywhere in idx. Ties are broken by first-seen in scan order:
// BBRuns starting at or after iseq are scanned before earlier ones, and
// each BBRun's accesses in file order.
func Nearest(idx Index, addr codec.HWord, iseq uint64, ratio float64) (access.Access, bool) {
	n := idx.NumBBRuns()
	if n == 0 {
		return access.Access{}, false
	}

	split := sort.Search(n, func(i int) bool { return idx.BBRunIseqStart(i) >= iseq })

	var (
		best      access.Access
		bestScore = math.Inf(1)
		found     bool
	)

	consider := func(a access.Access) {
		d := dist(a, addr, iseq, ratio)
		if !found || d < bestScore {
			best, bestScore, found = a, d, true
		}
	}

	scanRun := func(i int) {
		for j := 0; j < idx.BBRunNumAddrs(i); j++ {
			if a, ok := idx.Access(i, j); ok {
				consider(a)
			}
		}
	}

	// Forward cursor: every access in a BBRun whose iseq_start already
	// exceeds iseq by more than best_score cannot beat best_score, since
	// every access in it (and later runs) has iseq component at least
	// that difference.
	for i := split; i < n; i++ {
		if found && float64(idx.BBRunIseqStart(i)-iseq) > bestScore {
			break
		}
		scanRun(i)
	}

	// Backward cursor: every access in BBRun i has an iseq below the next
	// BBRun's iseq_start, so once iseq is at least best_score past the
	// last iseq BBRun i can hold, neither it nor any earlier run can beat
	// best_score.
	for i := split - 1; i >= 0; i-- {
		if found && i+1 < n && float64(iseq)-float64(idx.BBRunIseqStart(i+1))+1 >= bestScore {
			break
		}
		scanRun(i)
	}

	return best, found
}

func dist(a access.Access, addr codec.HWord, iseq uint64, ratio float64) float64 {
	dx := float64(int64(a.Addr)-int64(addr)) * ratio
	dy := float64(int64(a.ISeq) - int64(iseq))
	return math.Hypot(dx, dy)
}
