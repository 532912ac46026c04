// Package viewer defines the abstract Viewer consumer the Analyzer's
// AccessIndex and NearestAccessQuery feed (§6.1a): something that turns
// kept accesses into display coordinates and can drive a nearest-access
// query from a clicked point. The interactive point-and-click GUI itself
// is out of scope (§1); TextViewer is a minimal, real implementation used
// as a manual test harness for the query.
package viewer

import (
	"github.com/bmerry/datagrind/analyzer/access"
	"github.com/bmerry/datagrind/analyzer/pageremap"
	"github.com/bmerry/datagrind/analyzer/query"
	"github.com/bmerry/datagrind/codec"
)

// Point is one kept access positioned in the dense display coordinate
// space produced by PageRemap.
type Point struct {
	Dense codec.HWord
	ISeq  uint64
	Dir   codec.AccessDir
}

// Viewer is what an Analyzer consumer needs to render a point cloud and
// resolve a click into the access nearest it.
type Viewer interface {
	PointCloud() []Point
	Nearest(addr codec.HWord, iseq uint64, ratio float64) (access.Access, bool)
	// Sparse recovers the guest address a dense display coordinate was
	// remapped from, so a consumer that picks a point in display space
	// (e.g. a clicked histogram column) can feed Nearest a real address.
	Sparse(dense codec.HWord) (codec.HWord, bool)
}

// index is the subset of access.Index PointCloud/Nearest need.
type index interface {
	query.Index
	Pages() *pageremap.Map
	Walk(fn func(a access.Access))
}

// indexViewer is the direct Viewer implementation backed by an
// access.Index, with no rendering attached — the basis both TextViewer
// and any future GUI consumer build on.
type indexViewer struct {
	idx index
}

// FromIndex returns a Viewer reading directly from idx. idx.FinishLoad
// must already have been called.
func FromIndex(idx *access.Index) Viewer {
	return &indexViewer{idx: idx}
}

func (v *indexViewer) PointCloud() []Point {
	var points []Point
	v.idx.Walk(func(a access.Access) {
		dense, ok := v.idx.Pages().Dense(a.Addr)
		if !ok {
			return
		}
		points = append(points, Point{Dense: dense, ISeq: a.ISeq, Dir: a.Dir})
	})
	return points
}

func (v *indexViewer) Nearest(addr codec.HWord, iseq uint64, ratio float64) (access.Access, bool) {
	return query.Nearest(v.idx, addr, iseq, ratio)
}

func (v *indexViewer) Sparse(dense codec.HWord) (codec.HWord, bool) {
	return v.idx.Pages().Sparse(dense)
}
