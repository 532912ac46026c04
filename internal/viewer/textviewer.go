package viewer

import (
	"fmt"

	"github.com/bmerry/datagrind/codec"
	"github.com/yuuki0xff/tui-go"
)

// densityRunes ranks characters by visual weight, used to render a point
// density histogram one character per display column.
var densityRunes = []rune{' ', '.', ':', '-', '=', '+', '*', '#', '@'}

// TextViewer renders a point-cloud density histogram and exposes a
// simulated "click" (a histogram column and an iseq, passed in by the
// caller) that drives Viewer.Nearest — a text-mode stand-in for the out-of-scope
// interactive GUI (§6.1a), not a replacement for it.
type TextViewer struct {
	tui.WidgetBase

	v      Viewer
	ratio  float64
	status string

	columns int
	rows    []int
	minDense codec.HWord
	span     codec.HWord
}

// NewTextViewer returns a TextViewer over v. columns is the histogram's
// horizontal resolution.
func NewTextViewer(v Viewer, ratio float64, columns int) *TextViewer {
	return &TextViewer{v: v, ratio: ratio, columns: columns}
}

// Refresh recomputes the histogram from the current point cloud.
func (w *TextViewer) Refresh() {
	points := w.v.PointCloud()
	w.rows = make([]int, w.columns)
	if len(points) == 0 {
		w.status = "no accesses match the criteria"
		return
	}

	minDense, maxDense := points[0].Dense, points[0].Dense
	for _, p := range points[1:] {
		if p.Dense < minDense {
			minDense = p.Dense
		}
		if p.Dense > maxDense {
			maxDense = p.Dense
		}
	}
	w.minDense = minDense
	w.span = maxDense - minDense + 1

	for _, p := range points {
		col := int(uint64(p.Dense-minDense) * uint64(w.columns) / uint64(w.span))
		if col >= w.columns {
			col = w.columns - 1
		}
		w.rows[col]++
	}
	w.status = fmt.Sprintf("%d accesses across %d columns", len(points), w.columns)
}

// Click simulates a point-and-click query at histogram column col and
// instruction-sequence iseq, updating status with the resolved access —
// a manual-test harness for the nearest-access query without a pointing
// device.
func (w *TextViewer) Click(col int, iseq uint64) {
	if w.span == 0 {
		w.status = "no accesses to query"
		return
	}
	dense := w.minDense + codec.HWord(col)*(w.span/codec.HWord(w.columns)+1)
	addr, ok := w.v.Sparse(dense)
	if !ok {
		w.status = "column has no corresponding guest address"
		return
	}
	a, ok := w.v.Nearest(addr, iseq, w.ratio)
	if !ok {
		w.status = "no accesses to query"
		return
	}
	w.status = fmt.Sprintf("nearest: addr=0x%x dir=%s iseq=%d", uint64(a.Addr), a.Dir, a.ISeq)
}

// Draw renders the histogram, one row of weighted bars per Painter call,
// matching the teacher's widget-draws-itself-from-state shape
// (logviewer.GraphWidget.Draw).
func (w *TextViewer) Draw(p *tui.Painter) {
	size := w.Size()
	if len(w.rows) == 0 {
		p.DrawText(0, 0, w.status)
		return
	}

	maxCount := 1
	for _, c := range w.rows {
		if c > maxCount {
			maxCount = c
		}
	}

	height := size.Y - 1
	if height < 1 {
		height = 1
	}
	for col, count := range w.rows {
		if col >= size.X {
			break
		}
		level := count * (len(densityRunes) - 1) / maxCount
		p.DrawRune(col, height, densityRunes[level])
	}
	p.DrawText(0, 0, w.status)
}
